// cmd/picolink/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"picolink/internal/command"
	"picolink/internal/config"
	"picolink/internal/discovery"
	"picolink/internal/link"
	"picolink/internal/motion"
	"picolink/internal/utils"
)

type flags struct {
	port       string
	configPath string
	listPorts  bool
	reset      bool
}

func main() {
	var f flags
	pflag.StringVarP(&f.port, "port", "p", "", "serial port name (resolved by device identity when empty)")
	pflag.StringVar(&f.configPath, "config", "", "path to config file")
	pflag.BoolVar(&f.listPorts, "list-ports", false, "list available serial ports and exit")
	pflag.BoolVar(&f.reset, "reset", false, "reset the device into bootloader mode and exit")
	pflag.String("log-level", "", "override logging level")
	pflag.Parse()

	if err := viper.BindPFlag("logging.level", pflag.Lookup("log-level")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	if err := run(&f); err != nil {
		fmt.Fprintf(os.Stderr, "picolink: %v\n", err)
		os.Exit(1)
	}
}

func run(f *flags) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer utils.CloseLogger(logger)

	resolver := discovery.NewResolver(cfg.Link.IdentityToken, logger)

	if f.listPorts {
		return listPorts(resolver)
	}

	path, err := resolver.Resolve(f.port)
	if err != nil {
		return err
	}

	session, err := link.Open(path, &link.Config{
		BaudRate:    cfg.Serial.BaudRate,
		DataBits:    cfg.Serial.DataBits,
		StopBits:    cfg.Serial.StopBits,
		Parity:      cfg.Serial.Parity,
		ReadTimeout: cfg.Serial.ReadTimeout,
	}, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if f.reset {
		logger.Info("Resetting device into bootloader")
		if err := session.Send(command.ResetToBootloader{}); err != nil {
			return err
		}
		// Give the device time to re-enumerate before the port is dropped.
		select {
		case <-ctx.Done():
		case <-time.After(cfg.Link.ResetSettleDelay):
		}
		return nil
	}

	sequencer := motion.NewSequencer(session, logger, cfg.Ramp.MaxLevel, cfg.Ramp.StepDelay)
	if err := sequencer.Choreography(ctx); err != nil {
		return err
	}

	logger.Info("Choreography completed", zap.String("port", path))
	return nil
}

func listPorts(resolver *discovery.Resolver) error {
	ports, err := resolver.Enumerate()
	if err != nil {
		return err
	}
	for _, p := range ports {
		fmt.Printf("  %s\n", p.Name)
		fmt.Printf("    Type: %s\n", p.Class)
		if p.Class == discovery.ClassUSB {
			fmt.Printf("    VID:%s PID:%s\n", p.VID, p.PID)
			fmt.Printf("     Serial Number: %s\n", p.SerialNumber)
			fmt.Printf("           Product: %s\n", p.Product)
		}
	}
	return nil
}
