// Package app wires the subsystems together and runs the server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	logging "github.com/ipfs/go-log/v2"

	"github.com/ArsuMinSo/presentator/internal/config"
	"github.com/ArsuMinSo/presentator/internal/queue"
	"github.com/ArsuMinSo/presentator/internal/server"
	"github.com/ArsuMinSo/presentator/internal/show"
	"github.com/ArsuMinSo/presentator/internal/storage"
	"github.com/ArsuMinSo/presentator/internal/util"
	"github.com/ArsuMinSo/presentator/internal/ws"
)

var log = logging.Logger("app")

// Options carries startup parameters from main.
type Options struct {
	BaseDir string
	Cfg     config.Config
}

// Run starts every subsystem and blocks until ctx is cancelled.
func Run(ctx context.Context, opt Options) error {
	cfg := opt.Cfg

	store, err := show.NewStore(util.ResolvePath(opt.BaseDir, cfg.Paths.SlideshowsDir))
	if err != nil {
		return err
	}
	shows, err := store.Discover()
	if err != nil {
		return err
	}
	log.Infof("found %d slideshows in %s", len(shows), store.Root())

	var db *storage.DB
	if cfg.Paths.SessionDBFile != "" {
		db, err = storage.Open(util.ResolvePath(opt.BaseDir, cfg.Paths.SessionDBFile))
		if err != nil {
			return fmt.Errorf("open session database: %w", err)
		}
		defer db.Close()
	}

	hub := ws.NewHub(store, recorderOrNil(db))
	hub.SetCatalog(shows)

	q := queue.NewManager(util.ResolvePath(opt.BaseDir, cfg.Paths.QueueFile))

	mux := http.NewServeMux()
	server.Register(mux, server.Deps{
		WebDir: util.ResolvePath(opt.BaseDir, cfg.Paths.WebDir),
		Store:  store,
		Queue:  q,
		Hub:    hub,
		DB:     db,
	})

	go watchSlideshows(ctx, store, hub)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logBanner(cfg.Server.HTTPAddr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// recorderOrNil avoids handing the hub a non-nil interface holding a nil *DB.
func recorderOrNil(db *storage.DB) ws.SessionRecorder {
	if db == nil {
		return nil
	}
	return db
}

// watchSlideshows pushes a fresh catalog to all clients whenever the
// slideshows directory changes on disk. Events are debounced since editors
// and PPTX extraction touch several files in a burst.
func watchSlideshows(ctx context.Context, store *show.Store, hub *ws.Hub) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warnf("directory watch disabled: %v", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(store.Root()); err != nil {
		log.Warnf("watch %s: %v", store.Root(), err)
		return
	}

	var timer *time.Timer
	rescan := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(500*time.Millisecond, func() {
				select {
				case rescan <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("watcher: %v", err)

		case <-rescan:
			shows, err := store.Discover()
			if err != nil {
				log.Warnf("rescan: %v", err)
				continue
			}
			hub.SetCatalog(shows)
			hub.BroadcastCatalog()
			log.Debugf("slideshows dir changed, broadcast %d decks", len(shows))
		}
	}
}

func logBanner(addr string) {
	port := addr
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		port = addr[i+1:]
	}
	ip := util.LocalIP()
	log.Info("========================================")
	log.Infof("Presentator running at http://%s:%s", ip, port)
	log.Infof("Controller: http://%s:%s/web/controler.html", ip, port)
	log.Infof("Viewer:     http://%s:%s/web/viewer.html", ip, port)
	log.Info("========================================")
}
