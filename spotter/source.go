package spotter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/domainspotter/archive"
	"github.com/yourusername/domainspotter/feed"
)

// ErrFetch marks failures to obtain the archive, as opposed to failures to
// read it.
var ErrFetch = errors.New("fetching domain archive")

// Feed is the day's domain list together with the size of the archive it
// came from.
type Feed struct {
	Domains []string
	Size    int64
}

// Source yields the domain list for a run.
type Source interface {
	Load(ctx context.Context) (Feed, error)
	String() string
}

// FeedSource downloads the archive for Date and optionally keeps a copy.
type FeedSource struct {
	Client   *feed.Client
	Date     time.Time
	SavePath string
}

func (s *FeedSource) String() string {
	return s.Client.URL(s.Date)
}

func (s *FeedSource) Load(ctx context.Context) (Feed, error) {
	data, err := s.Client.Fetch(ctx, s.Date)
	if err != nil {
		return Feed{}, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if s.SavePath != "" {
		if err := archive.WriteFile(s.SavePath, data); err != nil {
			return Feed{}, fmt.Errorf("saving archive: %w", err)
		}
	}
	domains, err := archive.Extract(data)
	if err != nil {
		return Feed{}, err
	}
	return Feed{Domains: domains, Size: int64(len(data))}, nil
}

// FileSource reads a previously downloaded archive from disk.
type FileSource struct {
	Path string
}

func (s *FileSource) String() string {
	return s.Path
}

func (s *FileSource) Load(ctx context.Context) (Feed, error) {
	f, err := archive.Open(s.Path)
	if err != nil {
		return Feed{}, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer f.Close()

	data := f.Bytes()
	domains, err := archive.Extract(data)
	if err != nil {
		return Feed{}, err
	}
	return Feed{Domains: domains, Size: int64(len(data))}, nil
}
