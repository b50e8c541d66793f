// Package main 是应用程序的入口点。
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"valuation-form-go/internal/config"
	"valuation-form-go/internal/handler"
	"valuation-form-go/internal/middleware"
	"valuation-form-go/internal/pipeline"
	"valuation-form-go/internal/repository"
	"valuation-form-go/internal/repository/memrepo"
	"valuation-form-go/internal/seed"
	"valuation-form-go/internal/service"
	"valuation-form-go/pkg/database"
	"valuation-form-go/pkg/es"
	"valuation-form-go/pkg/kafka"
	"valuation-form-go/pkg/log"
	"valuation-form-go/pkg/storage"
	"valuation-form-go/pkg/token"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 1. 初始化配置
	config.Init(*configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化 Redis（地址为空时只使用进程内缓存）
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	bgCtx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	// 4. 初始化数据库与 Repository
	stores := openStores(cfg)
	catalogRepo := repository.NewCachedCatalogRepository(
		stores.catalog,
		database.RDB,
		cfg.Template.CatalogLRUSize,
		time.Duration(cfg.Template.CatalogCacheTTLSeconds)*time.Second,
	)
	customRepo := stores.customTemplates
	legacyRepo := stores.legacy
	orgRepo := stores.organizations
	permRepo := stores.permissions

	// 5. 可选的外部组件：Elasticsearch 检索、Kafka 事件、MinIO 目录包
	var indexer service.CustomTemplateIndexer
	if cfg.Elasticsearch.Addresses != "" {
		if err := es.InitES(cfg.Elasticsearch); err != nil {
			log.Errorf("es 初始化失败，自定义模板检索退化为数据库匹配: %v", err)
		} else {
			index := es.NewCustomTemplateIndex(es.ESClient, cfg.Elasticsearch.IndexName)
			if err := index.EnsureIndex(bgCtx); err != nil {
				log.Errorf("es 索引初始化失败，自定义模板检索退化为数据库匹配: %v", err)
			} else {
				indexer = index
			}
		}
	}

	var activity handler.ActivityPublisher
	if cfg.Kafka.Brokers != "" {
		publisher := kafka.NewActivityPublisher(cfg.Kafka)
		defer publisher.Close()
		activity = publisher

		processor := pipeline.NewProcessor(catalogRepo)
		go kafka.StartCatalogConsumer(bgCtx, cfg.Kafka, database.RDB, processor)
	}

	var catalogSource seed.Source
	switch {
	case cfg.MinIO.Endpoint != "":
		if err := storage.InitMinIO(cfg.MinIO); err != nil {
			log.Fatal("MinIO 初始化失败", err)
		}
		catalogSource = seed.MinIOSource{Client: storage.MinioClient, Bucket: cfg.MinIO.BucketName, Prefix: cfg.MinIO.CatalogPrefix}
	case cfg.Template.SeedDir != "":
		catalogSource = seed.DirSource{Dir: cfg.Template.SeedDir}
	}

	// 6. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours)
	templateService := service.NewTemplateService(catalogRepo, customRepo)
	customService := service.NewCustomTemplateService(customRepo, indexer, cfg.Template.MaxCustomTemplatesPerScope)
	legacyService := service.NewLegacyDefaultService(legacyRepo, templateService, customService)

	importer := &seed.Importer{
		Catalog:       catalogRepo,
		Organizations: orgRepo,
		Permissions:   permRepo,
		Legacy:        legacyRepo,
		Cache:         catalogRepo,
	}

	// 7. 启动时导入一次目录包（若配置了来源），失败不影响服务启动
	if catalogSource != nil {
		go initCatalog(bgCtx, importer, catalogSource)
	}

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	handler.Routes{
		JWTManager:      jwtManager,
		Organizations:   orgRepo,
		Permissions:     permRepo,
		Templates:       handler.NewTemplateHandler(templateService, legacyService),
		CustomTemplates: handler.NewCustomTemplateHandler(customService, activity),
		LegacyDefaults:  handler.NewLegacyDefaultHandler(legacyService, activity),
		Admin:           handler.NewAdminHandler(importer, catalogSource, catalogRepo, orgRepo),
	}.Register(r)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 停止 Kafka 消费者等后台任务
	cancelBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}

type repositories struct {
	catalog         repository.CatalogRepository
	customTemplates repository.CustomTemplateRepository
	legacy          repository.LegacyDefaultRepository
	organizations   repository.OrganizationRepository
	permissions     repository.PermissionRepository
}

// openStores 连接数据库并完成迁移。所选驱动没有配置 DSN 时进入演示模式，
// 全部数据保存在进程内存中，重启即丢失。
func openStores(cfg config.Config) repositories {
	dsn := cfg.Database.MySQL.DSN
	if cfg.Database.Driver == database.DriverPostgres {
		dsn = cfg.Database.Postgres.DSN
	}
	if dsn == "" {
		log.Warnf("未配置 %s DSN，使用内存存储运行演示模式", cfg.Database.Driver)
		return repositories{
			catalog:         memrepo.NewCatalogStore(),
			customTemplates: memrepo.NewCustomTemplateStore(),
			legacy:          memrepo.NewLegacyDefaultStore(),
			organizations:   memrepo.NewOrganizationStore(),
			permissions:     memrepo.NewPermissionStore(),
		}
	}

	database.InitDB(cfg.Database)
	if err := repository.AutoMigrate(database.DB); err != nil {
		log.Fatal("数据库迁移失败", err)
	}
	return repositories{
		catalog:         repository.NewCatalogRepository(database.DB),
		customTemplates: repository.NewCustomTemplateRepository(database.DB),
		legacy:          repository.NewLegacyDefaultRepository(database.DB),
		organizations:   repository.NewOrganizationRepository(database.DB),
		permissions:     repository.NewPermissionRepository(database.DB),
	}
}

// initCatalog 在启动时导入目录包。导入是幂等的 upsert，重复执行只会覆盖为相同内容。
func initCatalog(ctx context.Context, importer *seed.Importer, source seed.Source) {
	summary, err := importer.Import(ctx, source)
	if err != nil {
		log.Warnf("initCatalog: 目录导入失败: %v", err)
		return
	}
	log.Infof("initCatalog: 已导入 %d 个目录包文件，%d 个银行，%d 个结构模板", summary.Files, summary.Banks, summary.Templates)
}
