// SPDX-License-Identifier: BSD-3-Clause

// Package ipcserver implements the IPC Server: the Unix-socket endpoint the
// GUI talks to, using the same length-prefixed JSON framing as the HID
// Daemon. It lists devices, streams status updates, and routes setting and
// mode commands into the Speed Scheduler or the owning repository.
package ipcserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/coolerd/coolerd/pkg/device"
	ipcPkg "github.com/coolerd/coolerd/pkg/ipc"
	"github.com/coolerd/coolerd/pkg/log"
	"github.com/coolerd/coolerd/pkg/profile"
	"github.com/coolerd/coolerd/pkg/wire"
	"github.com/coolerd/coolerd/service"
	"github.com/coolerd/coolerd/service/reposcommon"
)

var _ service.Service = (*Server)(nil)

// scheduler is the subset of the Speed Scheduler's API the IPC Server
// drives when a request sets or clears a profile, kept narrow to avoid a
// hard dependency on the scheduler package's internals.
type scheduler interface {
	SetProfile(repo reposcommon.Repository, deviceID int, channelName string, points []device.ProfilePoint, limits profile.Limits, tempSource device.TempSourceRef, emaAlpha float64) error
	ClearProfile(ctx context.Context, repo reposcommon.Repository, deviceID int, channelName string) error
}

type deviceRef struct {
	Type string `json:"type"`
	ID   int    `json:"id"`
}

type modeEntry struct {
	Device      deviceRef             `json:"device"`
	ChannelName string                `json:"channel_name"`
	Setting     device.Setting        `json:"setting"`
	TempSource  *device.TempSourceRef `json:"temp_source,omitempty"`
	Limits      *profile.Limits       `json:"limits,omitempty"`
	EMAAlpha    float64               `json:"ema_alpha,omitempty"`
}

type request struct {
	Cmd      string      `json:"cmd"`
	Device   deviceRef   `json:"device,omitempty"`
	ModeName string      `json:"mode_name,omitempty"`
	Entries  []modeEntry `json:"entries,omitempty"`
	modeEntry
}

type deviceSnapshot struct {
	Type     string                        `json:"type"`
	ID       int                           `json:"id"`
	Name     string                        `json:"name"`
	Status   device.Status                 `json:"status"`
	Channels map[string]device.ChannelInfo `json:"channels,omitempty"`
}

type reply struct {
	OK      bool             `json:"ok"`
	Error   string           `json:"error,omitempty"`
	Tag     string           `json:"tag,omitempty"`
	Devices []deviceSnapshot `json:"devices,omitempty"`
}

// Server is the IPC Server service.
type Server struct {
	config

	repos     []reposcommon.Repository
	scheduler scheduler
	logger    *slog.Logger

	mu          sync.Mutex
	listener    net.Listener
	owned       bool
	modes       map[string][]modeEntry
	subscribers map[chan struct{}]struct{}
}

// New constructs a Server over the given repositories, routing Profile and
// ResetToDefault settings through sched.
func New(repos []reposcommon.Repository, sched scheduler, opts ...Option) *Server {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(cfg)
	}
	return &Server{
		config:      *cfg,
		repos:       repos,
		scheduler:   sched,
		modes:       make(map[string][]modeEntry),
		subscribers: make(map[chan struct{}]struct{}),
	}
}

// Name implements service.Service.
func (s *Server) Name() string { return s.serviceName }

// Run implements service.Service.
func (s *Server) Run(ctx context.Context, ipcConn nats.InProcessConnProvider) error {
	s.logger = log.GetGlobalLogger().With("service", s.serviceName)

	ln, owned, err := s.acquireListener()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSocketSetupFailed, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.owned = owned
	s.mu.Unlock()

	nc, err := nats.Connect("", nats.InProcessServer(ipcConn))
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("ipcserver: connecting to ipc bus: %w", err)
	}
	defer nc.Drain() //nolint:errcheck

	sub, err := nc.Subscribe(ipcPkg.SubjectStatusUpdated, func(*nats.Msg) {
		s.broadcastWake()
	})
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("ipcserver: subscribing to %s: %w", ipcPkg.SubjectStatusUpdated, err)
	}
	defer sub.Unsubscribe() //nolint:errcheck

	s.logger.InfoContext(ctx, "ipcserver listening", "owned_socket", owned)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				wg.Wait()
				return s.cleanup()
			default:
				s.logger.ErrorContext(ctx, "accept failed", "error", err)
				wg.Wait()
				return s.cleanup()
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) cleanup() error {
	if s.owned {
		_ = os.Remove(s.resolveSocketPath())
	}
	return nil
}

func (s *Server) acquireListener() (net.Listener, bool, error) {
	if s.listenFD >= 0 {
		f := os.NewFile(uintptr(s.listenFD), "ipcserver-socket")
		ln, err := net.FileListener(f)
		if err != nil {
			return nil, false, err
		}
		return ln, false, nil
	}

	path := s.resolveSocketPath()
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, false, err
	}
	if err := os.Chmod(path, 0o660); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, false, err
	}
	return ln, true, nil
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	for {
		var req request
		if err := wire.ReadFrame(conn, &req); err != nil {
			return
		}

		if req.Cmd == "subscribe_status" {
			s.streamStatus(ctx, conn)
			return
		}

		resp := s.dispatch(ctx, req)
		if err := wire.WriteFrame(conn, resp); err != nil {
			s.logger.WarnContext(ctx, "failed to write response", "error", err)
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req request) reply {
	switch req.Cmd {
	case "list_devices":
		return reply{OK: true, Devices: s.snapshot()}
	case "apply_setting":
		return s.applySetting(ctx, req.Device, req.modeEntry)
	case "save_mode":
		s.mu.Lock()
		s.modes[req.ModeName] = req.Entries
		s.mu.Unlock()
		return reply{OK: true}
	case "apply_mode":
		return s.applyMode(ctx, req.ModeName)
	default:
		return reply{OK: false, Error: ErrUnknownCommand.Error()}
	}
}

func (s *Server) snapshot() []deviceSnapshot {
	var out []deviceSnapshot
	for _, r := range s.repos {
		for _, d := range r.Statuses() {
			out = append(out, deviceSnapshot{
				Type:     string(d.Identity.Type),
				ID:       d.Identity.TypeID,
				Name:     d.Info.Name,
				Status:   d.Status(),
				Channels: d.Info.Channels,
			})
		}
	}
	return out
}

func (s *Server) applyMode(ctx context.Context, name string) reply {
	s.mu.Lock()
	entries, ok := s.modes[name]
	s.mu.Unlock()
	if !ok {
		return reply{OK: false, Error: ErrUnknownMode.Error()}
	}

	var lastTag reposcommon.StatusTag
	for _, e := range entries {
		r := s.applySetting(ctx, e.Device, e)
		if !r.OK {
			return r
		}
		lastTag = reposcommon.StatusTag(r.Tag)
	}
	return reply{OK: true, Tag: string(lastTag)}
}

func (s *Server) applySetting(ctx context.Context, dev deviceRef, entry modeEntry) reply {
	repo, d, ok := s.findDevice(dev)
	if !ok {
		return reply{OK: false, Error: ErrUnknownDevice.Error()}
	}

	set := entry.Setting
	if set.ChannelName == "" {
		set.ChannelName = entry.ChannelName
	}

	if s.scheduler != nil {
		if set.ResetToDefault {
			_ = s.scheduler.ClearProfile(ctx, repo, dev.ID, set.ChannelName)
		} else if len(set.Profile) > 0 {
			limits := profile.Limits{MinDuty: 0, MaxDuty: 100, CriticalTemp: 90}
			if entry.Limits != nil {
				limits = *entry.Limits
			}
			if ch, ok := d.Info.Channels[set.ChannelName]; ok && ch.SpeedOptions != nil {
				limits.MinDuty = ch.SpeedOptions.MinDuty
				limits.MaxDuty = ch.SpeedOptions.MaxDuty
			}
			var tempSource device.TempSourceRef
			if entry.TempSource != nil {
				tempSource = *entry.TempSource
			}
			if err := s.scheduler.SetProfile(repo, dev.ID, set.ChannelName, set.Profile, limits, tempSource, entry.EMAAlpha); err != nil {
				return reply{OK: false, Error: err.Error()}
			}
			return reply{OK: true}
		} else if set.Fixed != nil {
			// A direct fixed-duty write supersedes any existing profile
			// binding for this channel so the scheduler doesn't fight it.
			_ = s.scheduler.ClearProfile(ctx, repo, dev.ID, set.ChannelName)
		}
	}

	if set.ResetToDefault {
		tag, err := repo.SetChannelToDefault(ctx, dev.ID, set.ChannelName)
		if err != nil {
			return reply{OK: false, Error: err.Error()}
		}
		return reply{OK: true, Tag: string(tag)}
	}

	tag, err := repo.SetSettings(ctx, dev.ID, set)
	if err != nil {
		return reply{OK: false, Error: err.Error()}
	}
	return reply{OK: true, Tag: string(tag)}
}

func (s *Server) findDevice(ref deviceRef) (reposcommon.Repository, *device.Device, bool) {
	for _, r := range s.repos {
		for _, d := range r.Statuses() {
			if string(d.Identity.Type) == ref.Type && d.Identity.TypeID == ref.ID {
				return r, d, true
			}
		}
	}
	return nil, nil, false
}

func (s *Server) streamStatus(ctx context.Context, conn net.Conn) {
	if err := wire.WriteFrame(conn, reply{OK: true, Devices: s.snapshot()}); err != nil {
		return
	}

	wake := make(chan struct{}, 1)
	s.mu.Lock()
	s.subscribers[wake] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.subscribers, wake)
		s.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-wake:
			if err := wire.WriteFrame(conn, reply{OK: true, Devices: s.snapshot()}); err != nil {
				return
			}
		}
	}
}

func (s *Server) broadcastWake() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
