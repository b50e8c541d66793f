// Package main 是目录运维命令行工具 catalogctl 的入口点。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"valuation-form-go/internal/config"
	"valuation-form-go/internal/repository"
	"valuation-form-go/internal/seed"
	"valuation-form-go/internal/service"
	"valuation-form-go/pkg/database"
	"valuation-form-go/pkg/log"
	"valuation-form-go/pkg/storage"
	"valuation-form-go/pkg/token"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "估价表单目录运维工具",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.Init(configPath)
			log.Init(config.Conf.Log.Level, "console", "")
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "./configs/config.yaml", "配置文件路径")

	root.AddCommand(newImportCmd(), newMigrateLegacyCmd(), newTokenCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
	log.Sync()
}

func newImportCmd() *cobra.Command {
	var dir, minioPrefix string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "从目录或 MinIO 前缀导入目录包",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Conf

			var source seed.Source
			switch {
			case dir != "":
				source = seed.DirSource{Dir: dir}
			case minioPrefix != "":
				if err := storage.InitMinIO(cfg.MinIO); err != nil {
					return err
				}
				source = seed.MinIOSource{Client: storage.MinioClient, Bucket: cfg.MinIO.BucketName, Prefix: minioPrefix}
			case cfg.Template.SeedDir != "":
				source = seed.DirSource{Dir: cfg.Template.SeedDir}
			default:
				return fmt.Errorf("需要 --dir 或 --minio-prefix")
			}

			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
			catalog := repository.NewCachedCatalogRepository(
				repository.NewCatalogRepository(db),
				database.RDB,
				cfg.Template.CatalogLRUSize,
				time.Duration(cfg.Template.CatalogCacheTTLSeconds)*time.Second,
			)

			importer := &seed.Importer{
				Catalog:       catalog,
				Organizations: repository.NewOrganizationRepository(db),
				Permissions:   repository.NewPermissionRepository(db),
				Legacy:        repository.NewLegacyDefaultRepository(db),
				Cache:         catalog,
			}
			summary, err := importer.Import(cmd.Context(), source)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "files=%d banks=%d templates=%d commonFields=%d documentTypes=%d legacyDefaults=%d organizations=%d rolePermissions=%d\n",
				summary.Files, summary.Banks, summary.Templates, summary.CommonFields, summary.DocumentTypes,
				summary.LegacyDefaults, summary.Organizations, summary.RolePermissions)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "目录包所在的本地目录")
	cmd.Flags().StringVar(&minioPrefix, "minio-prefix", "", "目录包所在的 MinIO 对象前缀")
	return cmd
}

func newMigrateLegacyCmd() *cobra.Command {
	var orgID, bankCode, propertyType, name, actorID string
	cmd := &cobra.Command{
		Use:   "migrate-legacy",
		Short: "把组织的旧版逐字段默认值迁移为自定义模板",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Conf
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}

			catalog := repository.NewCatalogRepository(db)
			customRepo := repository.NewCustomTemplateRepository(db)
			templates := service.NewTemplateService(catalog, customRepo)
			customService := service.NewCustomTemplateService(customRepo, nil, cfg.Template.MaxCustomTemplatesPerScope)
			legacy := service.NewLegacyDefaultService(repository.NewLegacyDefaultRepository(db), templates, customService)

			tpl, err := legacy.Migrate(cmd.Context(), orgID, service.Actor{ID: actorID, Name: actorID}, bankCode, propertyType, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created custom template %s (%s/%s, %d fields)\n",
				tpl.ID, tpl.BankCode, tpl.PropertyType, len(tpl.FieldValues))
			return nil
		},
	}
	cmd.Flags().StringVar(&orgID, "org", "", "组织 ID")
	cmd.Flags().StringVar(&bankCode, "bank", "", "银行代码")
	cmd.Flags().StringVar(&propertyType, "property-type", "", "房产类型")
	cmd.Flags().StringVar(&name, "name", "", "新自定义模板名称（默认按作用域生成）")
	cmd.Flags().StringVar(&actorID, "actor", "catalogctl", "记录为创建者的用户 ID")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("bank")
	_ = cmd.MarkFlagRequired("property-type")
	return cmd
}

// newTokenCmd 为本地联调签发访问令牌。
func newTokenCmd() *cobra.Command {
	var userID, username, role, org string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "签发一个用于开发联调的访问令牌",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Conf
			if cfg.JWT.Secret == "" {
				return fmt.Errorf("jwt.secret 未配置")
			}
			manager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours)
			signed, err := manager.GenerateToken(userID, username, role, org)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "dev-user", "用户 ID")
	cmd.Flags().StringVar(&username, "name", "Dev User", "用户名")
	cmd.Flags().StringVar(&role, "role", "ORG_ADMIN", "角色")
	cmd.Flags().StringVar(&org, "org", "", "组织短名")
	return cmd
}

func openDatabase(cfg config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := repository.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	return db, nil
}
