package app

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/redis"
)

const (
	databaseDependencyName = "database"
	redisDependencyName    = "redis"
	kafkaDependencyName    = "kafka"
)

// DatabaseDependency connects to PostgreSQL and applies pending migrations.
type DatabaseDependency struct {
	cfg     *config.Config
	logger  ectologger.Logger
	migrate bool
	DB      database.DB
}

func (d *DatabaseDependency) GetName() string     { return databaseDependencyName }
func (d *DatabaseDependency) DependsOn() []string { return nil }

func (d *DatabaseDependency) Start(ctx context.Context) error {
	db, err := database.Connect(ctx, d.cfg.DSN(), database.PoolConfig{
		MaxOpenConns:    d.cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    d.cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: d.cfg.DatabaseConnMaxLifetime,
	}, d.logger)
	if err != nil {
		return err
	}

	if d.migrate {
		if err := Migrate(d.cfg, db, d.logger); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	d.DB = db
	return nil
}

func (d *DatabaseDependency) Stop(ctx context.Context) error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

// Migrate applies the configured migrations to db.
func Migrate(cfg *config.Config, db database.DB, logger ectologger.Logger) error {
	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             cfg.DatabaseMigrationVersion,
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	return migrations.MigratePostgres(db, cfg.DatabaseNameFromDSN())
}

// RedisDependency connects the client backing the run lock.
type RedisDependency struct {
	cfg    *config.Config
	logger ectologger.Logger
	Client *redis.Client
}

func (d *RedisDependency) GetName() string     { return redisDependencyName }
func (d *RedisDependency) DependsOn() []string { return nil }

func (d *RedisDependency) Start(ctx context.Context) error {
	client, err := redis.NewClient(ctx, redis.Config{
		Host:     d.cfg.RedisHost,
		Port:     d.cfg.RedisPort,
		Password: d.cfg.RedisPassword,
		DB:       d.cfg.RedisDB,
	}, d.logger)
	if err != nil {
		return err
	}
	d.Client = client
	return nil
}

func (d *RedisDependency) Stop(ctx context.Context) error {
	if d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

// KafkaDependency owns the run event producer. Writers dial lazily, so
// Start only validates the broker list.
type KafkaDependency struct {
	cfg      *config.Config
	logger   ectologger.Logger
	Producer *kafka.Producer
}

func (d *KafkaDependency) GetName() string     { return kafkaDependencyName }
func (d *KafkaDependency) DependsOn() []string { return nil }

func (d *KafkaDependency) Start(ctx context.Context) error {
	kafkaCfg := kafka.ParseConfig(d.cfg.KafkaBrokers, d.cfg.KafkaRunTopic)
	if len(kafkaCfg.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is empty")
	}
	d.Producer = kafka.NewProducer(kafkaCfg, d.logger)
	return nil
}

func (d *KafkaDependency) Stop(ctx context.Context) error {
	if d.Producer == nil {
		return nil
	}
	return d.Producer.Close()
}
