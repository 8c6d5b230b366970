package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	testutil "github.com/cpmappstudio/alef-university-sub001/tests"
)

func TestCheckConfig(t *testing.T) {
	tests := []struct {
		name       string
		redisHost  string
		engine     string
		wantErrStr string
	}{
		{name: "no redis", redisHost: "", engine: "postgres", wantErrStr: "no import queue"},
		{name: "memory database", redisHost: "localhost", engine: "memory", wantErrStr: "memory database engine"},
		{name: "redis and postgres", redisHost: "localhost", engine: "postgres"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := testutil.NewConfig()
			conf.Redis.Host = tt.redisHost
			conf.Database.Engine = tt.engine

			err := checkConfig(conf)
			if tt.wantErrStr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErrStr)
			}
		})
	}
}
