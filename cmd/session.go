package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/fruitjar/internal/metrics"
	"github.com/sw33tLie/fruitjar/internal/utils"
	"github.com/sw33tLie/fruitjar/pkg/catalog"
	"github.com/sw33tLie/fruitjar/pkg/jar"
	"github.com/sw33tLie/fruitjar/pkg/storage"
)

// newCatalogLoader builds the loader described by the catalog.* settings.
// A catalog file takes precedence over the endpoint.
func newCatalogLoader() (*catalog.Loader, error) {
	var src catalog.Source
	if file := viper.GetString("catalog.file"); file != "" {
		src = catalog.FileSource{Path: file}
	} else {
		httpSrc, err := catalog.NewHTTPSource(catalog.HTTPConfig{
			URL:     viper.GetString("catalog.url"),
			Retries: viper.GetInt("catalog.retries"),
			Timeout: viper.GetDuration("catalog.timeout"),
			Proxy:   viper.GetString("catalog.proxy"),
		})
		if err != nil {
			return nil, err
		}
		src = httpSrc
	}

	return catalog.NewLoader(src,
		catalog.WithLogger(utils.Log),
		catalog.WithStaleTime(viper.GetDuration("catalog.stale")),
		catalog.WithLoadHook(func(o catalog.Origin) { metrics.RecordCatalogLoad(string(o)) }),
	), nil
}

// session is one open jar: the store, its backing database and the lock
// held while the process may write.
type session struct {
	Store *jar.Store
	db    *storage.DB
	lock  *utils.DBLock
}

// openSession opens the jar selected by the global flags. Unless
// --ephemeral is set, the database lock is held until Close.
func openSession(cmd *cobra.Command) (*session, error) {
	ctx := context.Background()
	opts := []jar.Option{
		jar.WithLogger(utils.Log),
		jar.WithStrict(viper.GetBool("jar.strict")),
	}

	if ephemeral, _ := cmd.Flags().GetBool("ephemeral"); ephemeral {
		opts = append(opts, jar.WithObserver(recordTransition(nil)))
		return &session{Store: jar.New(ctx, storage.NewMemory(), opts...)}, nil
	}

	absPath, err := utils.GetAbsDBPath(viper.GetString("jar.dbpath"))
	if err != nil {
		return nil, err
	}
	if err := utils.EnsureDBDir(absPath); err != nil {
		return nil, err
	}

	lock, err := utils.NewDBLock(absPath)
	if err != nil {
		return nil, err
	}
	if err := lock.Lock(); err != nil {
		return nil, err
	}

	db, err := storage.Open(absPath)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("opening jar database: %w", err)
	}
	utils.Log.Debugf("Using jar database %s", absPath)

	opts = append(opts, jar.WithObserver(recordTransition(db)))
	return &session{
		Store: jar.New(ctx, db, opts...),
		db:    db,
		lock:  lock,
	}, nil
}

func (s *session) Close() error {
	var err error
	if s.db != nil {
		err = s.db.Close()
	}
	if s.lock != nil {
		if uerr := s.lock.Unlock(); err == nil {
			err = uerr
		}
	}
	return err
}

// recordTransition feeds every applied transition to the metrics and, when
// db is set, to the audit log.
func recordTransition(db *storage.DB) func(jar.Op, jar.History) {
	return func(op jar.Op, h jar.History) {
		items := len(h.Snapshots[h.Index])
		metrics.RecordTransition(string(op), items, h.Len())
		if db == nil {
			return
		}
		ev := storage.Event{Op: string(op), JarSize: items, HistoryLen: h.Len(), Cursor: h.Index}
		if err := db.RecordEvent(context.Background(), ev); err != nil {
			utils.Log.Warnf("Could not record jar event: %v", err)
		}
	}
}
