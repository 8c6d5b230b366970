// Command worker consumes the import queue and runs the queued imports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/apps/shared"
	"github.com/cpmappstudio/alef-university-sub001/core"
	blobsvc "github.com/cpmappstudio/alef-university-sub001/services/blob"
	emailsvc "github.com/cpmappstudio/alef-university-sub001/services/email"
	logsvc "github.com/cpmappstudio/alef-university-sub001/services/logger"
	queuesvc "github.com/cpmappstudio/alef-university-sub001/services/queue"
	workersvc "github.com/cpmappstudio/alef-university-sub001/services/worker"
)

// checkConfig refuses setups where the worker could not share its queue or its database with the API.
func checkConfig(conf *core.Config) error {
	if !conf.RedisEnabled() {
		return errors.New("no import queue configured, set the redis host")
	}
	if conf.Database.Engine == "memory" {
		return errors.New("the memory database engine is private to the API process, use postgres")
	}
	return nil
}

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(conf)
	core.ParseEmailTemplates(conf, logger)

	if err := checkConfig(conf); err != nil {
		logger.Fatal("worker: "+err.Error(), err)
	}

	repos, err := shared.OpenRepositories(conf)
	errAndDie(logger, err)
	defer func() { _ = repos.Close() }()

	scale, err := shared.LoadScale(conf)
	errAndDie(logger, err)
	svcs, err := shared.NewServices(repos, scale, conf, emailsvc.NewService(conf, logger), logger, core.SystemClock)
	errAndDie(logger, err)

	blobs, err := blobsvc.NewStore(conf)
	errAndDie(logger, err)
	queue, err := queuesvc.NewQueue(conf, logger, core.SystemClock)
	errAndDie(logger, err)
	defer func() { _ = queue.Close() }()

	runner, err := workersvc.NewImportRunner(queue, blobs, svcs.Importer, conf.Import.Workers, logger)
	errAndDie(logger, err)

	ctx, cancel := context.WithCancel(context.Background())
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-shutdown
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		cancel()
	}()

	logger.Info(fmt.Sprintf("worker: consuming %s with %d workers", conf.Redis.ImportQueue, conf.Import.Workers))
	if err := runner.Run(ctx); err != nil {
		logger.Error(fmt.Sprintf("worker: %v", err), err)
	}
	logger.Info("worker stopped")
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
