package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_created_total",
		Help: "Orders successfully created.",
	})

	OrderNumberRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_order_number_retries_total",
		Help: "Order number collisions that forced a regenerate-and-retry.",
	})

	CartMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_mutations_total",
		Help: "Cart mutations by operation.",
	}, []string{"op"})

	StreamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_stream_subscribers",
		Help: "Currently connected order status stream subscribers.",
	})
)

func Handler() http.Handler { return promhttp.Handler() }
