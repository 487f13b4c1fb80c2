package workers

import (
	"context"
	"log/slog"
	"reflect"
	"time"
)

type NamedChannel struct {
	Name    string
	Channel any
}

type ChannelUsage struct {
	Name     string
	Capacity int
	Length   int
}

// Percent is the fill ratio of the channel, 0 for an unbuffered one.
func (u ChannelUsage) Percent() int {
	if u.Capacity == 0 {
		return 0
	}
	return u.Length * 100 / u.Capacity
}

// ChannelCapacityWorker periodically samples buffered channels and warns when
// one fills beyond the threshold. Reading len and cap is non-blocking, so
// this won't interfere with the producers and consumers.
type ChannelCapacityWorker struct {
	log            *slog.Logger
	channels       []NamedChannel
	metricInterval time.Duration
	warnPercent    int
}

func NewChannelCapacityWorker(log *slog.Logger, channels []NamedChannel,
	metricInterval time.Duration, warnPercent int) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{
		log:            log,
		channels:       channels,
		metricInterval: metricInterval,
		warnPercent:    warnPercent,
	}
}

func (w *ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping channel sampling")
			return nil
		case <-ticker.C:
			for _, usage := range w.Sample() {
				if usage.Percent() >= w.warnPercent {
					w.log.Warn("Channel filling up",
						"name", usage.Name, "length", usage.Length, "capacity", usage.Capacity)
					continue
				}
				w.log.Debug("Channel usage",
					"name", usage.Name, "length", usage.Length, "capacity", usage.Capacity)
			}
		}
	}
}

// Sample reads the current length and capacity of every channel.
func (w *ChannelCapacityWorker) Sample() []ChannelUsage {
	usages := make([]ChannelUsage, 0, len(w.channels))
	for _, nc := range w.channels {
		v := reflect.ValueOf(nc.Channel)
		if v.Kind() != reflect.Chan {
			w.log.Error("Provided object is not a channel", "name", nc.Name)
			continue
		}
		usages = append(usages, ChannelUsage{Name: nc.Name, Capacity: v.Cap(), Length: v.Len()})
	}
	return usages
}
