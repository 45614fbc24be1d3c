//go:build !tinygo

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/itohio/headtrack/pkg/config"
	"github.com/itohio/headtrack/pkg/hostlink"
	"github.com/itohio/headtrack/pkg/queue"
	"github.com/itohio/headtrack/pkg/sim"
	"github.com/itohio/headtrack/pkg/tasks"
)

func main() {
	var (
		portFlag      = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyUSB0)")
		configFlag    = flag.String("config", "config.yaml", "Configuration file path")
		verboseFlag   = flag.Bool("v", false, "Log sensor initialization")
		listFlag      = flag.Bool("list", false, "List serial ports and exit")
		ignoreDTRFlag = flag.Bool("ignore-dtr", false, "Treat the host as always listening")
	)
	flag.Parse()

	if *listFlag {
		if err := listPorts(); err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Emulator.Port = *portFlag
	}
	if *ignoreDTRFlag {
		cfg.Emulator.IgnoreDTR = true
	}

	link, err := hostlink.Open(cfg.Emulator.Port, cfg.Emulator.BaudRate, cfg.Emulator.ReadTimeout)
	if err != nil {
		log.Fatalf("Failed to open host link: %v", err)
	}
	defer link.Close()
	link.IgnoreDTR = cfg.Emulator.IgnoreDTR

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var logf tasks.Logf
	if *verboseFlag {
		logf = log.Printf
	}

	log.Printf("Emulating tracker on %s", link.Name())
	sensorStats, transportStats, err := run(ctx, cfg, link, logf)
	if err != nil {
		log.Fatalf("Emulator failed: %v", err)
	}

	log.Printf("Sensor %s: %d frames emitted, %d dropped", sensorStats.State, sensorStats.Emitted, sensorStats.Dropped)
	if sensorStats.InitErr != nil {
		log.Printf("Sensor init error: %v", sensorStats.InitErr)
	}
	log.Printf("Transport: %d bytes forwarded, %d echoed, %d write errors, %d read errors",
		transportStats.Forwarded, transportStats.Echoed, transportStats.WriteErrors, transportStats.ReadErrors)
}

// run wires the simulated sensor to port and runs both loops until ctx is
// done.
func run(ctx context.Context, cfg *config.Config, port tasks.Port, logf tasks.Logf) (tasks.SensorStats, tasks.TransportStats, error) {
	var q queue.Queue
	producer, consumer, err := q.Split()
	if err != nil {
		return tasks.SensorStats{}, tasks.TransportStats{}, err
	}

	sensor := tasks.NewSensorTask(sim.NewWallClock(), sim.NewSensor(&cfg.Emulator), producer, cfg.Sensor, cfg.Pipeline)
	sensor.Logf = logf
	transport := tasks.NewTransportTask(port, consumer)

	var launcher tasks.Launcher
	if err := launcher.Launch(ctx, sensor, transport); err != nil {
		return tasks.SensorStats{}, tasks.TransportStats{}, fmt.Errorf("failed to launch: %w", err)
	}
	return sensor.Stats(), transport.Stats(), nil
}

func listPorts() error {
	ports, err := hostlink.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p.Name)
	}
	return nil
}
