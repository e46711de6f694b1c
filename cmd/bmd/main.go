// Command bmd runs a lightweight Bitmessage-style overlay node: wire
// codec, object store, peer pools, connection workers, an optional I2P
// bridge, and the manager loop that ties them together.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/go-bmd/bmd/internal/addrmgr"
	"github.com/go-bmd/bmd/internal/bmlog"
	"github.com/go-bmd/bmd/internal/config"
	"github.com/go-bmd/bmd/internal/dnsseed"
	"github.com/go-bmd/bmd/internal/i2p"
	"github.com/go-bmd/bmd/internal/manager"
	"github.com/go-bmd/bmd/internal/peer"
	"github.com/go-bmd/bmd/internal/pow"
	"github.com/go-bmd/bmd/internal/state"
)

var defaultSeedHosts = []string{
	"bootstrap8444.bitmessage.org",
	"bootstrap8080.bitmessage.org",
}

func main() {
	dataDir := flag.String("data-dir", defaultDataDir(), "directory for persisted pools and objects")
	connectionLimit := flag.Int("connection-limit", config.DefaultConnectionLimit, "maximum number of simultaneous connections")
	trustedPeer := flag.String("trusted-peer", "", "connect only to this host:port, skipping pool-driven connection management")
	noIncoming := flag.Bool("no-incoming", false, "do not accept inbound connections")
	port := flag.Uint16P("port", "p", config.DefaultPort, "TCP port to listen on")
	enableI2P := flag.Bool("i2p", false, "enable the I2P bridge via a local SAM proxy")
	noIP := flag.Bool("no-ip", false, "disable the plain IP transport entirely")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	bmlog.SetDebug(*debug)

	if err := run(runOptions{
		dataDir:         *dataDir,
		connectionLimit: *connectionLimit,
		trustedPeer:     *trustedPeer,
		noIncoming:      *noIncoming,
		port:            *port,
		enableI2P:       *enableI2P,
		noIP:            *noIP,
	}); err != nil {
		bmlog.Log.WithField("err", err).Fatal("bmd: exiting")
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bmd"
	}
	return filepath.Join(home, ".bmd")
}

type runOptions struct {
	dataDir         string
	connectionLimit int
	trustedPeer     string
	noIncoming      bool
	port            uint16
	enableI2P       bool
	noIP            bool
}

func run(opts runOptions) error {
	if err := os.MkdirAll(opts.dataDir, 0o700); err != nil {
		return fmt.Errorf("bmd: creating data dir: %w", err)
	}

	cfg, err := config.Default()
	if err != nil {
		return err
	}
	cfg.DataDir = opts.dataDir
	cfg.Port = opts.port
	cfg.ConnectionLimit = opts.connectionLimit
	cfg.TrustedPeer = opts.trustedPeer
	cfg.NoIncoming = opts.noIncoming
	cfg.I2PEnabled = opts.enableI2P
	cfg.IPEnabled = !opts.noIP

	st := state.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	i2pPub, i2pTransient, err := setUpI2PIdentity(cfg)
	if err != nil {
		bmlog.Log.WithField("err", err).Warn("bmd: i2p disabled: could not set up session")
		cfg.I2PEnabled = false
	}

	mgr := manager.New(st, manager.Options{
		DataDir:      opts.dataDir,
		Seeder:       dnsseed.New(defaultSeedHosts, cfg.Port),
		Solve:        pow.Solve,
		I2PPub:       i2pPub,
		I2PTransient: i2pTransient,
		Dial:         dialFunc(cfg),
	})

	coreNodes, err := addrmgr.LoadCoreNodesCSV(filepath.Join("assets", "core_nodes.csv"))
	if err != nil {
		bmlog.Log.WithField("err", err).Warn("bmd: loading core node list")
	}
	i2pCoreNodes, err := addrmgr.LoadI2PCoreNodesCSV(filepath.Join("assets", "i2p_core_nodes.csv"))
	if err != nil {
		bmlog.Log.WithField("err", err).Warn("bmd: loading i2p core node list")
	}
	if err := mgr.LoadData(ctx, coreNodes, i2pCoreNodes); err != nil {
		return fmt.Errorf("bmd: loading persisted data: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return mgr.Run(gctx) })

	if cfg.IPEnabled && !cfg.NoIncoming {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
		if err != nil {
			return fmt.Errorf("bmd: listening on :%d: %w", cfg.Port, err)
		}
		g.Go(func() error { return acceptLoop(gctx, st, ln) })
	}

	if cfg.I2PEnabled {
		samAddr := fmt.Sprintf("%s:%d", cfg.SamHost, cfg.SamPort)
		l := i2p.NewListener(st, samAddr, "bmd", func(p *peer.Peer) { p.Start() })
		g.Go(func() error {
			<-gctx.Done()
			l.Stop()
			return nil
		})
		g.Go(func() error { l.Run(); return nil })
	}

	bmlog.Log.Info("bmd: started")
	err = g.Wait()
	bmlog.Log.Info("bmd: shut down")
	return err
}

// dialFunc bridges the manager's transport-agnostic Dial requirement to a
// concrete TCP dial or, for I2P addresses, an I2P SAM stream.
func dialFunc(cfg config.Config) func(*state.State, addrmgr.PeerAddress, bool) (*peer.Peer, error) {
	return func(st *state.State, addr addrmgr.PeerAddress, bootstrap bool) (*peer.Peer, error) {
		if addr.Network == addrmgr.NetworkI2P {
			samAddr := fmt.Sprintf("%s:%d", cfg.SamHost, cfg.SamPort)
			return i2p.Dial(st, samAddr, "bmd", addr.Host)
		}
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", addr.Host, addr.Port), 10*time.Second)
		if err != nil {
			return nil, err
		}
		return peer.New(st, peer.NewTCPTransport(conn), peer.Options{
			Inbound:   false,
			Bootstrap: bootstrap,
			Addr:      addr,
		}), nil
	}
}

func acceptLoop(ctx context.Context, st *state.State, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if st.Connections.Len() >= st.Config.ConnectionLimit {
			conn.Close()
			continue
		}
		p := peer.New(st, peer.NewTCPTransport(conn), peer.Options{Inbound: true})
		p.Start()
	}
}

// setUpI2PIdentity creates a persistent (or transient, if none saved yet)
// I2P SAM session and returns the node's own public destination.
func setUpI2PIdentity(cfg config.Config) (pub string, transient bool, err error) {
	if !cfg.I2PEnabled {
		return "", false, nil
	}
	keyPath := filepath.Join(cfg.DataDir, "i2p_keys.dat")
	priv := ""
	if raw, err := os.ReadFile(keyPath); err == nil {
		priv = string(raw)
	}

	samAddr := fmt.Sprintf("%s:%d", cfg.SamHost, cfg.SamPort)
	sess, err := i2p.CreateSession(samAddr, "bmd", priv)
	if err != nil {
		return "", false, err
	}
	if priv == "" {
		if err := os.WriteFile(keyPath, []byte(sess.PrivateKey), 0o600); err != nil {
			bmlog.Log.WithField("err", err).Warn("bmd: saving i2p private destination")
		}
	}
	return sess.PublicKey, sess.IsTransient, nil
}
