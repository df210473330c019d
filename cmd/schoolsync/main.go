// Command schoolsync rebuilds the study map dataset from the NEIS school
// registry, geocoding each address with Kakao Local.
//
//	go run ./cmd/schoolsync -out data/schools.yaml -region B10
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"STUDYHUB_BACK-END/internal/config"
	"STUDYHUB_BACK-END/internal/logger"
	"STUDYHUB_BACK-END/internal/schools"
)

func main() {
	_ = godotenv.Load(".env")

	var (
		out       = flag.String("out", envOr("SCHOOLS_DATA_PATH", "data/schools.yaml"), "output YAML path")
		region    = flag.String("region", "", "ATPT_OFCDC_SC_CODE of one education office (all when empty)")
		neisKey   = flag.String("neis-key", os.Getenv("NEIS_API_KEY"), "NEIS open API key")
		kakaoKey  = flag.String("kakao-key", os.Getenv("KAKAO_REST_API_KEY"), "Kakao REST API key")
		perSecond = flag.Float64("rps", 8, "geocoding requests per second")
		logLevel  = flag.String("log-level", "info", "log level")
	)
	flag.Parse()
	logger.Setup(config.LogConfig{Level: *logLevel})

	if *kakaoKey == "" {
		log.Fatal("a Kakao REST API key is required (-kakao-key or KAKAO_REST_API_KEY)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncer := schools.NewSyncer(
		schools.NewNEISClient("", *neisKey),
		schools.NewKakaoGeocoder("", *kakaoKey),
		*perSecond,
	)
	list, stats, err := syncer.Run(ctx, *region)
	if err != nil {
		log.WithError(err).Fatal("sync failed")
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.WithError(err).Fatal("create output directory")
	}
	f, err := os.Create(*out)
	if err != nil {
		log.WithError(err).Fatal("create output file")
	}
	if err := schools.Encode(f, list); err != nil {
		f.Close()
		log.WithError(err).Fatal("write dataset")
	}
	if err := f.Close(); err != nil {
		log.WithError(err).Fatal("close output file")
	}

	log.WithFields(log.Fields{
		"path":     *out,
		"fetched":  stats.Fetched,
		"geocoded": stats.Geocoded,
		"skipped":  stats.Skipped,
	}).Info("schools dataset written")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
