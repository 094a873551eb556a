// Command airnode runs the battery sensor node: calibrated gas channels,
// wake-capable binary inputs, the alarm arbiter, and the low-power loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dhoward/airnode/internal/adc"
	"github.com/dhoward/airnode/internal/calib"
	"github.com/dhoward/airnode/internal/config"
	"github.com/dhoward/airnode/internal/gpio"
	"github.com/dhoward/airnode/internal/node"
	"github.com/dhoward/airnode/internal/status"
	"github.com/dhoward/airnode/internal/store"
	"github.com/dhoward/airnode/internal/transport"
	"github.com/dhoward/airnode/internal/web"
)

func main() {
	configPath := flag.String("config", "/etc/airnode.yaml", "Configuration file path")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	serialPort := flag.String("serial", "", "Serial gateway port (overrides config, replaces MQTT)")
	poll := flag.Duration("poll", 0, "Loop tick interval (overrides config)")
	i2cBus := flag.String("i2c-bus", "", "I2C bus name for the ADC (empty for the first bus)")
	i2cAddr := flag.Uint("i2c-addr", 0x48, "I2C address of the ADC")
	forceCalibrate := flag.Bool("force-calibrate", false, "Recalibrate every channel, ignoring stored baselines")
	printState := flag.Bool("print-state", false, "Print current sensor state and exit")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if *broker != "" {
		cfg.Broker = *broker
	}
	if *serialPort != "" {
		cfg.Serial.Port = *serialPort
	}
	if *poll > 0 {
		cfg.Poll = *poll
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, *i2cBus, uint16(*i2cAddr), *forceCalibrate, *printState, *httpAddr); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg *config.Config, i2cBus string, i2cAddr uint16, forceCalibrate, printState bool, httpAddr string) error {
	adcReader, err := adc.NewRealReader(i2cBus, i2cAddr)
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	defer adcReader.Close()
	sampler := adc.NewSampler(adcReader, 0, 0, nil)

	gpioReader, err := gpio.NewRealReader(cfg.Pins.Door, cfg.Pins.Motion)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer gpioReader.Close()

	if printState {
		return printCurrentState(os.Stdout, cfg, sampler, gpioReader)
	}

	buzzer, err := gpio.NewRealBuzzer(cfg.Pins.ToneLow, cfg.Pins.ToneHigh)
	if err != nil {
		return fmt.Errorf("init buzzer: %w", err)
	}
	defer buzzer.Close()

	st, err := store.OpenFile(cfg.StorePath, store.DefaultSize)
	if err != nil {
		return fmt.Errorf("open calibration store: %w", err)
	}
	defer st.Close()
	calibrator := calib.New(sampler, st, 0, 0, nil)

	var actuator *gpio.PWMActuator
	if cfg.Duty.Enabled {
		actuator, err = gpio.NewPWMActuator(cfg.Duty.PWMChip, cfg.Duty.PWMChannel, 0)
		if err != nil {
			return fmt.Errorf("init heater pwm: %w", err)
		}
		defer actuator.Close()
	}

	deps := node.Deps{
		Sampler:    sampler,
		Calibrator: calibrator,
		Reader:     gpioReader,
		Buzzer:     buzzer,
	}
	if actuator != nil {
		deps.Actuator = actuator
	}

	// Serial gateway replaces MQTT when configured; only MQTT carries the
	// command subscription and system topic.
	if cfg.Serial.Port != "" {
		pub, err := transport.NewSerialPublisher(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.NodeID)
		if err != nil {
			return fmt.Errorf("init serial gateway: %w", err)
		}
		defer pub.Close()
		deps.Publisher = transport.NewRetrier(pub, 0, 0, nil)
	} else {
		pub, err := transport.NewMQTTPublisher(cfg.Broker, cfg.NodeID)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer pub.Close()
		deps.Publisher = transport.NewRetrier(pub, 0, 0, nil)
		deps.System = pub
		deps.Receiver = pub
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		NodeID:     cfg.NodeID,
		PollMs:     cfg.Poll.Milliseconds(),
		Broker:     cfg.Broker,
		SerialPort: cfg.Serial.Port,
	})
	deps.Tracker = tracker

	n := node.New(cfg, deps)

	if httpAddr != "" {
		srv := web.New(httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", httpAddr)
	}

	caps := cfg.Capabilities()
	log.Printf("started: node=%d poll=%v gas_channels=%d duty=%v door=%v motion=%v",
		cfg.NodeID, cfg.Poll, caps.GasChannels, caps.DutyCycle, caps.Door, caps.Motion)

	if err := n.Startup(forceCalibrate); err != nil {
		return fmt.Errorf("startup calibration: %w", err)
	}
	if err := n.CalibrateDutyLevel(); err != nil {
		return fmt.Errorf("duty level sweep: %w", err)
	}

	if deps.System != nil {
		snap := tracker.Snapshot()
		event := transport.SystemEvent{
			Timestamp: snap.Now,
			Event:     "STARTUP",
			Payload:   status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := deps.System.PublishSystem(event); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		} else {
			log.Printf("published startup event")
		}
	}

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return n.Run(time.Now, ticker.C, sigCh)
}

// printCurrentState samples every configured input once and prints it.
func printCurrentState(w io.Writer, cfg *config.Config, sampler *adc.Sampler, reader gpio.Reader) error {
	for _, g := range cfg.Gas {
		if !g.Enabled {
			continue
		}
		raw, err := sampler.Sample(g.ADCChannel)
		if err != nil {
			return fmt.Errorf("sample %s: %w", g.Name, err)
		}
		fmt.Fprintf(w, "%s: raw=%d\n", g.Name, raw)
	}
	door, motion, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read inputs: %w", err)
	}
	if cfg.Door.Enabled {
		fmt.Fprintf(w, "door: %s\n", stateString(door))
	}
	if cfg.Motion.Enabled {
		fmt.Fprintf(w, "motion: %s\n", stateString(motion))
	}
	return nil
}

func stateString(on bool) string {
	if on {
		return "OPEN"
	}
	return "CLEAR"
}
