package main

import (
	"context"
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/FleetLink/FleetLink/internal/booking"
	"github.com/FleetLink/FleetLink/internal/common/config"
	"github.com/FleetLink/FleetLink/internal/common/db"
	"github.com/FleetLink/FleetLink/internal/common/logger"
	"github.com/FleetLink/FleetLink/internal/common/server"
	"github.com/FleetLink/FleetLink/internal/common/tracing"
	"github.com/FleetLink/FleetLink/internal/gateway"
	"github.com/FleetLink/FleetLink/internal/inspection"
	"github.com/FleetLink/FleetLink/internal/notify"
	"github.com/FleetLink/FleetLink/internal/photo"
	"github.com/FleetLink/FleetLink/internal/schedule"
	"github.com/FleetLink/FleetLink/internal/storage"
	"github.com/FleetLink/FleetLink/internal/template"
	"github.com/FleetLink/FleetLink/internal/vehicle"
)

func main() {
	configPath := flag.String("config", "configs/inspection-service.json", "config file path")
	consulAddr := flag.String("consul-addr", "localhost:8500", "consul address for kv config")
	consulKey := flag.String("consul-config-key", "", "consul kv key holding the config json")
	flag.Parse()

	// 优先 Consul KV，失败或未指定时退回本地文件
	var cfg *config.Config
	var err error
	if *consulKey != "" {
		cfg, err = config.LoadConfigFromConsulKV(*consulAddr, *consulKey)
		if err != nil {
			logrus.Warnf("consul kv config unavailable, falling back to file: %v", err)
			cfg = nil
		}
	}
	if cfg == nil {
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			logrus.Fatalf("failed to load config: %v", err)
		}
	}

	log := logger.Init(&cfg.Log)

	_, closer, err := tracing.InitTracer(cfg.Server.Name, cfg.Jaeger.Endpoint, cfg.Jaeger.Sampler)
	if err != nil {
		log.Warnf("tracing disabled: %v", err)
	} else {
		defer closer.Close()
	}

	gdb, err := db.NewMySQL(
		cfg.Database.Host, cfg.Database.Port,
		cfg.Database.User, cfg.Database.Password, cfg.Database.Database,
		cfg.Database.MaxIdle, cfg.Database.MaxOpen,
	)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	if err := gdb.AutoMigrate(
		&vehicle.Vehicle{}, &vehicle.VehicleGroup{},
		&template.CategoryTemplate{}, &template.ItemTemplate{}, &template.Assignment{},
		&inspection.Inspection{}, &inspection.ItemRecord{}, &inspection.PhotoRecord{},
		&booking.Booking{},
	); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	ctx := context.Background()

	// 对象存储：local 开发 / firebase 生产
	var blobStore storage.BlobStore
	photoDir := ""
	switch cfg.Storage.Driver {
	case "firebase":
		blobStore, err = storage.NewFirebaseStore(ctx, cfg.Storage.Bucket, cfg.Storage.CredentialsFile)
		if err != nil {
			log.Fatalf("failed to init firebase storage: %v", err)
		}
	default:
		local, err := storage.NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL)
		if err != nil {
			log.Fatalf("failed to init local storage: %v", err)
		}
		blobStore = local
		photoDir = cfg.Storage.LocalDir
	}

	staging, err := storage.NewStaging(cfg.Storage.StagingDir)
	if err != nil {
		log.Fatalf("failed to init staging: %v", err)
	}
	pipeline := photo.NewPipeline(staging, blobStore)

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Storage.FCMEnabled {
		fcm, err := notify.NewFCMNotifier(ctx, cfg.Storage.CredentialsFile, "inspections")
		if err != nil {
			log.Warnf("fcm disabled: %v", err)
		} else {
			notifier = fcm
		}
	}

	vehicleRepo := vehicle.NewRepo(gdb)
	templateRepo := template.NewRepo(gdb)
	loader := template.NewLoader(templateRepo, cfg.Inspection.DefaultLocale)
	inspectionRepo := inspection.NewRepo(gdb)
	bookingRepo := booking.NewRepo(gdb)
	planner := schedule.NewPlanner(inspectionRepo, cfg.Inspection.RecurrenceDays)

	coordinator := inspection.NewCoordinator(inspectionRepo, pipeline, bookingRepo, planner, notifier)
	service := inspection.NewService(vehicleRepo, loader, inspectionRepo, coordinator, pipeline)

	sessions := gateway.NewSessionManager()
	handlers := gateway.NewHandlers(vehicleRepo, service, sessions)
	router := gateway.NewRouter(cfg, handlers, photoDir)

	// 后台清扫：被放弃的暂存照片与闲置会话
	maxAge := time.Duration(cfg.Inspection.StagingMaxAge) * time.Minute
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := staging.Sweep(maxAge); err != nil {
				log.Warnf("staging sweep failed: %v", err)
			} else if n > 0 {
				log.Infof("staging sweep removed %d abandoned photos", n)
			}
			if n := sessions.SweepIdle(maxAge); n > 0 {
				log.Infof("removed %d idle sessions", n)
			}
		}
	}()

	// gRPC 端口承载健康检查，HTTP 端口承载会话 API
	go func() {
		if err := server.RunGRPCServer(cfg, nil); err != nil {
			log.Errorf("grpc server stopped: %v", err)
		}
	}()

	if err := server.RunHTTPServer(cfg, router); err != nil {
		log.Fatalf("http server stopped: %v", err)
	}
}
