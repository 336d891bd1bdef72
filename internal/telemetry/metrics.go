package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/victornm/millionaire/internal/domain"
	"github.com/victornm/millionaire/internal/event"
)

const namespace = "millionaire"

var (
	GamesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "games_started_total",
		Help:      "Number of games started.",
	})

	GamesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "games_finished_total",
		Help:      "Number of games finished, by status.",
	}, []string{"status"})

	PrizesPaid = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "prizes_paid_total",
		Help:      "Sum of the prizes credited to users.",
	})

	HelpsUsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "helps_used_total",
		Help:      "Number of hints used, by kind.",
	}, []string{"kind"})
)

// MonitorGames counts game events published on eb.
func MonitorGames(eb *event.Bus) {
	eb.Subscribe(domain.EventNameGameStarted, func(_ context.Context, _ event.Event) error {
		GamesStarted.Inc()
		return nil
	})

	eb.Subscribe(domain.EventNameGameFinished, func(_ context.Context, e event.Event) error {
		ev := e.(domain.EventGameFinished)
		GamesFinished.WithLabelValues(ev.Game.Status).Inc()
		if ev.Paid {
			PrizesPaid.Add(ev.Game.Prize.InexactFloat64())
		}
		return nil
	})

	eb.Subscribe(domain.EventNameHelpUsed, func(_ context.Context, e event.Event) error {
		HelpsUsed.WithLabelValues(e.(domain.EventHelpUsed).Kind).Inc()
		return nil
	})
}
