package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	httpHelper "github.com/Luzifer/go_helpers/http"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"gopkg.in/validator.v2"

	"github.com/Luzifer/filegate/pkg/cache"
	"github.com/Luzifer/filegate/pkg/cache/lru"
	"github.com/Luzifer/filegate/pkg/cache/redis"
	"github.com/Luzifer/filegate/pkg/gateway"
	"github.com/Luzifer/filegate/pkg/storage"
	"github.com/Luzifer/filegate/pkg/storage/gcs"
	"github.com/Luzifer/filegate/pkg/storage/local"
	"github.com/Luzifer/filegate/pkg/storage/memory"
	"github.com/Luzifer/filegate/pkg/storage/s3"

	"github.com/Luzifer/rconfig/v2"
)

var (
	cfg = struct {
		Auth            string        `flag:"auth" default:"" description:"Shared secret required in the Authorization header of uploads (empty = no check)"`
		Cache           string        `flag:"cache" default:"lru" description:"Response cache to use (lru, redis, none)"`
		CacheMaxEntryMB int           `flag:"cache-max-entry-mb" default:"10" description:"Do not keep responses larger than this in the LRU cache"`
		CacheSize       int           `flag:"cache-size" default:"1024" description:"Number of responses to keep in the LRU cache"`
		Domain          string        `flag:"domain" default:"" description:"Public hostname used to build URLs of uploaded files" validate:"nonzero"`
		Listen          string        `flag:"listen" default:":3000" description:"Port/IP to listen on"`
		LogLevel        string        `flag:"log-level" default:"info" description:"Log level (debug, info, warn, error, fatal)"`
		MaxSizeMB       int64         `flag:"max-size-mb" default:"100" description:"Maximum size of an uploaded file in MB"`
		MetricsListen   string        `flag:"metrics-listen" default:"" description:"Port/IP to expose Prometheus metrics on (empty = disabled)"`
		RedisAddr       string        `flag:"redis-addr" default:"localhost:6379" description:"Redis address for the redis cache"`
		RedisPassword   string        `flag:"redis-password" default:"" description:"Redis password for the redis cache"`
		RedisTTL        time.Duration `flag:"redis-ttl" default:"24h" description:"Expiry of responses in the redis cache (0 = none)"`
		S3AccessKey     string        `flag:"s3-access-key" default:"" description:"Access key for s3:// storage"`
		S3Endpoint      string        `flag:"s3-endpoint" default:"s3.amazonaws.com" description:"Endpoint (host[:port]) for s3:// storage"`
		S3Region        string        `flag:"s3-region" default:"" description:"Region for s3:// storage"`
		S3SecretKey     string        `flag:"s3-secret-key" default:"" description:"Secret key for s3:// storage"`
		S3UseSSL        bool          `flag:"s3-use-ssl" default:"true" description:"Use HTTPS to talk to the s3:// endpoint"`
		Storage         string        `flag:"storage" default:"file://./data/" description:"Where to store files (gs://bucket/prefix, s3://bucket/prefix, mem://, file://dir)"`
		VersionAndExit  bool          `flag:"version" default:"false" description:"Prints current version and exits"`
	}{}

	version = "dev"
)

func initApp() error {
	rconfig.AutoEnv(true)
	if err := rconfig.Parse(&cfg); err != nil {
		return errors.Wrap(err, "parsing cli options")
	}

	if cfg.VersionAndExit {
		return nil
	}

	if err := validator.Validate(cfg); err != nil {
		return errors.Wrap(err, "validating cli options")
	}

	l, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, "parsing log-level")
	}
	log.SetLevel(l)

	if cfg.MaxSizeMB < 0 {
		return errors.New("max-size-mb must not be negative")
	}

	return nil
}

func main() {
	var err error
	if err = initApp(); err != nil {
		log.WithError(err).Fatal("initializing app")
	}

	if cfg.VersionAndExit {
		fmt.Printf("filegate %s\n", version)
		os.Exit(0)
	}

	ctx := context.Background()

	store, err := getStorage(ctx)
	if err != nil {
		log.WithError(err).Fatal("creating storage backend")
	}

	responseCache, err := getCache(ctx)
	if err != nil {
		log.WithError(err).Fatal("creating response cache")
	}

	var opts []gateway.Option
	if cfg.MetricsListen != "" {
		reg := prometheus.NewRegistry()
		metrics, err := gateway.NewMetrics("", reg)
		if err != nil {
			log.WithError(err).Fatal("creating metrics")
		}
		opts = append(opts, gateway.WithMetrics(metrics))

		go serveMetrics(reg)
	}

	gw := gateway.New(gateway.Config{
		Domain:       cfg.Domain,
		MaxSizeMB:    cfg.MaxSizeMB,
		SharedSecret: cfg.Auth,
	}, store, responseCache, opts...)

	log.WithFields(log.Fields{
		"listen":  cfg.Listen,
		"storage": cfg.Storage,
		"cache":   cfg.Cache,
		"version": version,
	}).Info("filegate started")

	if err = http.ListenAndServe(cfg.Listen, httpHelper.NewHTTPLogHandler(gw.Handler())); err != nil { //#nosec:G114 // Request lifetime is bounded by the hosting environment
		log.WithError(err).Fatal("running HTTP server")
	}
}

func getStorage(ctx context.Context) (storage.Storage, error) {
	uri, err := url.Parse(cfg.Storage)
	if err != nil {
		return nil, errors.Wrap(err, "parsing storage URI")
	}

	switch uri.Scheme {
	case "gs":
		return gcs.New(ctx, cfg.Storage)

	case "s3":
		return s3.New(cfg.Storage, s3.Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		})

	case "mem":
		return memory.New(), nil

	case "file":
		return local.New(strings.TrimPrefix(cfg.Storage, "file://")), nil

	case "":
		return local.New(cfg.Storage), nil

	default:
		return nil, errors.Errorf("unsupported storage scheme %q", uri.Scheme)
	}
}

func getCache(ctx context.Context) (cache.Cache, error) {
	switch cfg.Cache {
	case "lru":
		return lru.New(cfg.CacheSize, cfg.CacheMaxEntryMB*1024*1024)

	case "redis":
		return redis.New(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			TTL:      cfg.RedisTTL,
		})

	case "none":
		return cache.Nop{}, nil

	default:
		return nil, errors.Errorf("unsupported cache %q", cfg.Cache)
	}
}

func serveMetrics(reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	if err := http.ListenAndServe(cfg.MetricsListen, mux); err != nil { //#nosec:G114 // Internal listener
		log.WithError(err).Fatal("running metrics server")
	}
}
