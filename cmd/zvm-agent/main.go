package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/projecteru2/core/log"
	coretypes "github.com/projecteru2/core/types"
	"github.com/urfave/cli/v2"

	"github.com/openstack-archive/networking-zvm/configs"
	"github.com/openstack-archive/networking-zvm/internal/agent"
	"github.com/openstack-archive/networking-zvm/internal/metrics"
	"github.com/openstack-archive/networking-zvm/internal/network"
	"github.com/openstack-archive/networking-zvm/internal/rpc/etcd"
	"github.com/openstack-archive/networking-zvm/internal/utils"
	"github.com/openstack-archive/networking-zvm/internal/ver"
	"github.com/openstack-archive/networking-zvm/internal/xcat"
	"github.com/openstack-archive/networking-zvm/internal/zvm"
)

const (
	setupAttempts = 5
	setupInterval = 2 * time.Second
)

func main() {
	cli.VersionPrinter = func(_ *cli.Context) {
		fmt.Print(ver.Version())
	}

	app := &cli.App{
		Name:  ver.NAME,
		Usage: "bind z/VM guest NICs to vswitches as xCAT reports them",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "config",
				Usage:    "config files, later ones override earlier ones",
				Required: true,
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "dump-config",
				Usage:  "print the merged config",
				Action: dumpConfig,
			},
		},
		Version: "v",
		Action:  run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*configs.Config, error) {
	cfg, err := configs.New()
	if err != nil {
		return nil, err
	}
	if err := cfg.Load(c.StringSlice("config")); err != nil {
		return nil, err
	}
	return cfg, cfg.Check()
}

func dumpConfig(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	dump, err := cfg.Dump()
	if err != nil {
		return err
	}
	fmt.Print(dump)
	return nil
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	if err := log.SetupLog(ctx, &coretypes.ServerLogConfig{
		Level:    cfg.LogLevel,
		Filename: cfg.LogFile,
	}, cfg.LogSentry); err != nil {
		return errors.Wrap(err, "setup log")
	}
	defer log.SentryDefer()

	logger := log.WithFunc("main.run").WithField("host", cfg.Host)
	if dump, err := cfg.Dump(); err == nil {
		logger.Infof(ctx, "config loaded:\n%s", dump)
	}

	mgr, closer, err := setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer()

	if err := metrics.Setup(cfg.Host, mgr.GetMetricsCollector()); err != nil {
		return err
	}
	if err := utils.Pool.Submit(func() {
		if err := metrics.Serve(ctx, cfg.Metrics.BindHTTPAddr); err != nil {
			logger.Error(ctx, err, "metrics server stopped")
		}
	}); err != nil {
		logger.Error(ctx, err, "failed to start metrics server")
	}

	logger.Infof(ctx, "running as %s", mgr.AgentID())
	return mgr.Run(ctx)
}

// setup builds the manager. The vswitches have to exist before any port
// can be bound, so their creation is retried like the etcd connection.
func setup(ctx context.Context, cfg *configs.Config) (*agent.Manager, func(), error) {
	xcatCli, err := xcat.New(&cfg.XCAT)
	if err != nil {
		return nil, nil, err
	}
	accessor := zvm.NewXCAT(xcatCli, cfg.XCAT.ZHCPNodename)

	var vswitches *network.Vswitches
	if err := utils.BackoffRetry(ctx, setupAttempts, setupInterval, func() error {
		vswitches, err = network.Setup(ctx, accessor, cfg)
		return err
	}); err != nil {
		return nil, nil, errors.Wrap(err, "setup vswitches")
	}

	var plugin *etcd.Etcd
	if err := utils.BackoffRetry(ctx, setupAttempts, setupInterval, func() error {
		plugin, err = etcd.New(cfg)
		return err
	}); err != nil {
		return nil, nil, errors.Wrap(err, "connect etcd")
	}
	closer := func() {
		if err := plugin.Close(); err != nil {
			log.WithFunc("main.setup").Warnf(ctx, "close etcd: %s", err)
		}
	}

	mgr, err := agent.NewManager(cfg, accessor, plugin, vswitches)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return mgr, closer, nil
}
