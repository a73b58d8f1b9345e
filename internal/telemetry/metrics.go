package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnswersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phishparty",
		Name:      "answers_total",
		Help:      "Answer submissions by result (correct, incorrect, ignored).",
	}, []string{"result"})

	RevealsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "phishparty",
		Name:      "reveals_total",
		Help:      "Questions closed and revealed.",
	})

	AdvancesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "phishparty",
		Name:      "advances_total",
		Help:      "Transitions out of the results screen.",
	})

	GamesFinishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "phishparty",
		Name:      "games_finished_total",
		Help:      "Games that reached the last question.",
	})

	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "phishparty",
		Name:      "active_rooms",
		Help:      "Rooms currently held in memory.",
	})

	ChallengeSolvesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phishparty",
		Name:      "challenge_solves_total",
		Help:      "CTF flag submissions by result.",
	}, []string{"result"})
)
