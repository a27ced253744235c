package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/service/models/cartline"
	"github.com/corray333/backend-labs/ordering/internal/service/models/history"
	"github.com/corray333/backend-labs/ordering/internal/service/models/order"
	cancelorder "github.com/corray333/backend-labs/ordering/internal/transport/http/cancel_order"
	"github.com/corray333/backend-labs/ordering/internal/transport/http/cart"
	completeorder "github.com/corray333/backend-labs/ordering/internal/transport/http/complete_order"
	getorder "github.com/corray333/backend-labs/ordering/internal/transport/http/get_order"
	"github.com/corray333/backend-labs/ordering/internal/transport/http/httputil"
	listorders "github.com/corray333/backend-labs/ordering/internal/transport/http/list_orders"
	orderhistory "github.com/corray333/backend-labs/ordering/internal/transport/http/order_history"
	placeorder "github.com/corray333/backend-labs/ordering/internal/transport/http/place_order"
	"github.com/corray333/backend-labs/ordering/pkg/http/middleware/actor"
	"github.com/corray333/backend-labs/ordering/pkg/http/middleware/trace"
	"github.com/corray333/backend-labs/ordering/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
)

type orderService interface {
	PlaceOrder(ctx context.Context, model order.PlaceOrderModel) (order.Ack, error)
	CancelOrder(ctx context.Context, orderID int64) (order.Ack, error)
	CompleteOrder(ctx context.Context, orderID, actingUserID int64) (order.Ack, error)
	GetOrder(ctx context.Context, orderID int64) (order.View, error)
	ListOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.View, error)
	History(ctx context.Context, orderID int64) ([]history.Entry, error)
}

type cartService interface {
	AddItem(ctx context.Context, model cartline.AddItemModel) (cartline.AdjustResult, error)
	AdjustQuantity(ctx context.Context, lineID int64, delta int) (cartline.AdjustResult, error)
	RemoveItem(ctx context.Context, lineID int64) error
	ClearForUserRestaurant(ctx context.Context, userID, restaurantID int64) (bool, error)
	ListCart(ctx context.Context, userID, restaurantID int64) ([]cartline.CartLine, error)
}

type HTTPTransport struct {
	server       *http.Server
	router       *chi.Mux
	orderService orderService
	cartService  cartService
}

func NewHTTPTransport(service string, orderService orderService, cartService cartService) *HTTPTransport {
	router := newRouter(service)
	server := newServer(router)

	return &HTTPTransport{
		server:       server,
		router:       router,
		orderService: orderService,
		cartService:  cartService,
	}
}

// Handler returns the root handler of the transport.
func (h *HTTPTransport) Handler() http.Handler {
	return h.router
}

func (h *HTTPTransport) Run() error {
	slog.Info("HTTP server started", "addr", h.server.Addr)

	return h.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Get("/health", health)

	h.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.placeOrder)
			r.Get("/", h.listOrders)
			r.Get("/{id}", h.getOrder)
			r.Get("/{id}/history", h.orderHistory)
			r.Post("/{id}/cancel", h.cancelOrder)
			r.Post("/{id}/complete", h.completeOrder)
		})

		r.Route("/carts", func(r chi.Router) {
			r.Patch("/items/{lineId}", h.adjustCartItem)
			r.Delete("/items/{lineId}", h.removeCartItem)
			r.Get("/{userId}", h.listCart)
			r.Post("/{userId}/items", h.addCartItem)
			r.Delete("/{userId}/restaurants/{restaurantId}", h.clearCart)
		})
	})
}

func (h *HTTPTransport) placeOrder(w http.ResponseWriter, r *http.Request) {
	placeorder.PlaceOrder(w, r, h.orderService)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.orderService)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	getorder.GetOrder(w, r, h.orderService)
}

func (h *HTTPTransport) orderHistory(w http.ResponseWriter, r *http.Request) {
	orderhistory.OrderHistory(w, r, h.orderService)
}

func (h *HTTPTransport) cancelOrder(w http.ResponseWriter, r *http.Request) {
	cancelorder.CancelOrder(w, r, h.orderService)
}

func (h *HTTPTransport) completeOrder(w http.ResponseWriter, r *http.Request) {
	completeorder.CompleteOrder(w, r, h.orderService)
}

func (h *HTTPTransport) listCart(w http.ResponseWriter, r *http.Request) {
	cart.ListCart(w, r, h.cartService)
}

func (h *HTTPTransport) addCartItem(w http.ResponseWriter, r *http.Request) {
	cart.AddItem(w, r, h.cartService)
}

func (h *HTTPTransport) adjustCartItem(w http.ResponseWriter, r *http.Request) {
	cart.AdjustQuantity(w, r, h.cartService)
}

func (h *HTTPTransport) removeCartItem(w http.ResponseWriter, r *http.Request) {
	cart.RemoveItem(w, r, h.cartService)
}

func (h *HTTPTransport) clearCart(w http.ResponseWriter, r *http.Request) {
	cart.Clear(w, r, h.cartService)
}

func health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func newRouter(service string) *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(trace.NewTraceMiddleware(service))
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(actor.NewActorMiddleware)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:              "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
