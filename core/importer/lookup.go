package importer

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bimester"
	"github.com/cpmappstudio/alef-university-sub001/core/course"
	"github.com/cpmappstudio/alef-university-sub001/core/program"
	"github.com/cpmappstudio/alef-university-sub001/core/user"
)

// lookup resolves the codes of an import file, remembering hits and misses alike for one run.
type lookup struct {
	svc   *Service
	cache *cache.Cache
}

type lookupEntry struct {
	value interface{}
	err   error
}

func (svc *Service) newLookup() *lookup {
	return &lookup{svc: svc, cache: cache.New(svc.cacheTTL, 10*time.Minute)}
}

func (lk *lookup) get(key string, fetch func() (interface{}, error)) (interface{}, error) {
	if v, found := lk.cache.Get(key); found {
		entry := v.(lookupEntry)
		return entry.value, entry.err
	}
	value, err := fetch()
	if err == nil || core.IsNotFound(err) {
		lk.cache.Set(key, lookupEntry{value: value, err: err}, cache.DefaultExpiration)
	}
	return value, err
}

func (lk *lookup) program(ctx context.Context, code string) (program.Program, error) {
	code = program.NormalizeCode(code)
	v, err := lk.get("program:"+code, func() (interface{}, error) {
		return lk.svc.programs.GetByCode(ctx, code)
	})
	if err != nil {
		return program.Program{}, err
	}
	return v.(program.Program), nil
}

func (lk *lookup) course(ctx context.Context, programID, code string) (course.Course, error) {
	code = course.NormalizeCode(code)
	v, err := lk.get("course:"+programID+":"+code, func() (interface{}, error) {
		return lk.svc.courses.GetByCode(ctx, programID, code)
	})
	if err != nil {
		return course.Course{}, err
	}
	return v.(course.Course), nil
}

func (lk *lookup) bimester(ctx context.Context, name string) (bimester.Bimester, error) {
	name = strings.TrimSpace(name)
	v, err := lk.get("bimester:"+strings.ToLower(name), func() (interface{}, error) {
		return lk.svc.bimesters.GetByName(ctx, name)
	})
	if err != nil {
		return bimester.Bimester{}, err
	}
	return v.(bimester.Bimester), nil
}

func (lk *lookup) userByEmail(ctx context.Context, email string) (user.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	v, err := lk.get("user:email:"+email, func() (interface{}, error) {
		return lk.svc.users.GetByEmail(ctx, email)
	})
	if err != nil {
		return user.User{}, err
	}
	return v.(user.User), nil
}

func (lk *lookup) userByCode(ctx context.Context, code string) (user.User, error) {
	code = user.NormalizeCode(code)
	v, err := lk.get("user:code:"+code, func() (interface{}, error) {
		return lk.svc.users.GetByCode(ctx, code)
	})
	if err != nil {
		return user.User{}, err
	}
	return v.(user.User), nil
}
