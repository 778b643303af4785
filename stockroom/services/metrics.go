package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "novastock",
		Name:      "purchase_orders_created_total",
		Help:      "Number of purchase orders created, including reorders.",
	})

	reordersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "novastock",
		Name:      "reorders_created_total",
		Help:      "Number of purchase orders created through the reorder flow.",
	})

	draftEmailsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "novastock",
		Name:      "draft_emails_generated_total",
		Help:      "Number of reorder emails drafted, partitioned by source.",
	}, []string{"source"})
)
