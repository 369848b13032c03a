// cellsock-demo runs the full socket stack against the simulated baseband:
// power the modem, register, provision a credential tag, open a TLS
// connection, and stream GNSS fixes until interrupted. Useful for kicking
// the tires without hardware on the bench.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"syscall"
	"time"

	"github.com/oklog/run"

	"github.com/cellsock/cellsock/at"
	"github.com/cellsock/cellsock/creds"
	"github.com/cellsock/cellsock/gnss"
	"github.com/cellsock/cellsock/modem"
	"github.com/cellsock/cellsock/sim"
	"github.com/cellsock/cellsock/socket"
)

// goreleaser will replace version with Git version. You can also pass
// version into the go build:
//
//	go build -ldflags="-X main.version=1.2.3"
var version = "Development"

const demoTag = 16842753

const demoFix = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"

func main() {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flagVersion := flags.Bool("version", false, "Print app version")
	flagDebug := flags.Bool("debug", false, "Log AT command traffic")
	flagHost := flags.String("host", "device.example.com", "TLS endpoint")
	flagPort := flags.Uint("port", 8883, "TLS endpoint port")
	flags.Parse(os.Args[1:])

	if *flagVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	at.DebugCommands = *flagDebug

	log.Printf("cellsock demo %v\n", version)

	if err := demo(*flagHost, uint16(*flagPort)); err != nil {
		log.Fatal("demo stopped, reason: ", err)
	}
}

func demo(host string, port uint16) error {
	layer := sim.New()
	layer.SetRegistered(true)
	layer.SetDNS(host, sim.Addr(10, 0, 0, 1))

	// Bring the baseband up with GNSS enabled.
	m := modem.New(layer)
	if err := m.SetSystemMode(modem.ModeLTEM | modem.ModeGNSS); err != nil {
		return err
	}
	if err := m.On(); err != nil {
		return err
	}
	if err := m.ConfigureGNSSAntenna(); err != nil {
		return err
	}
	if err := m.WaitForRegistration(10 * time.Second); err != nil {
		return err
	}
	log.Println("registered on network")

	// Credentials must be in place before the secure socket opens.
	if err := creds.Provision(layer, demoTag, []byte(demoRootCA), nil, nil); err != nil {
		return err
	}

	conn, err := socket.DialTLS(layer, host, port, socket.TLSConfig{
		Tags:       []uint32{demoTag},
		PeerVerify: socket.VerifyRequired,
	})
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("connected to %v:%v\n", host, port)

	fixes, err := gnss.Open(layer)
	if err != nil {
		return err
	}
	defer fixes.Close()

	if err := fixes.SetNMEAMask(gnss.MaskGGA); err != nil {
		return err
	}
	if err := fixes.Start(gnss.DeleteMask(0)); err != nil {
		return err
	}
	defer fixes.Stop()

	var g run.Group

	// The bench has no sky: feed the receiver a canned sentence once a
	// second.
	stopFeed := make(chan struct{})
	g.Add(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				layer.PushNMEA(demoFix)
			case <-stopFeed:
				return nil
			}
		}
	}, func(_ error) {
		close(stopFeed)
	})

	// Report each fix over the TLS connection.
	stopReport := make(chan struct{})
	g.Add(func() error {
		for {
			select {
			case <-stopReport:
				return nil
			default:
			}

			fix, err := fixes.GetBlockingFix(5 * time.Second)
			if err == socket.ErrTimeout {
				log.Println("no fix yet")
				continue
			}
			if err != nil {
				return err
			}

			log.Printf("fix: %.4f,%.4f alt %.1fm sats %v\n",
				fix.Lat, fix.Long, fix.Alt, fix.NumSat)

			msg := fmt.Sprintf("%.6f,%.6f,%.1f\n", fix.Lat, fix.Long, fix.Alt)
			if _, err := conn.Write([]byte(msg)); err != nil {
				return err
			}
		}
	}, func(_ error) {
		close(stopReport)
	})

	g.Add(run.SignalHandler(context.Background(),
		syscall.SIGINT, syscall.SIGTERM))

	return g.Run()
}

// Placeholder root CA for the simulated store; the sim does not parse PEM.
const demoRootCA = `-----BEGIN CERTIFICATE-----
ZGVtbyByb290IGNhIGZvciB0aGUgc2ltdWxhdGVkIG1vZGVtIHN0b3Jl
-----END CERTIFICATE-----`
