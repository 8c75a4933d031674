package api

import (
	"database/sql"
	"net/http"

	"stockroom/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	itemsHandler := &ItemsHandler{DB: db}
	cartHandler := &CartHandler{DB: db}
	requestsHandler := &RequestsHandler{DB: db}
	loansHandler := &LoansHandler{DB: db}
	disbursementsHandler := &DisbursementsHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Items: read (all roles), write (manager+).
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(requireManager(http.HandlerFunc(itemsHandler.Create))))
	mux.Handle("GET /api/items/{name}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{name}", authMW(requireManager(http.HandlerFunc(itemsHandler.Update))))
	mux.Handle("DELETE /api/items/{name}", authMW(requireManager(http.HandlerFunc(itemsHandler.Delete))))
	mux.Handle("POST /api/items/{name}/quantity", authMW(requireManager(http.HandlerFunc(itemsHandler.Restock))))
	mux.Handle("GET /api/items/{name}/stacks", authMW(http.HandlerFunc(itemsHandler.Stacks)))
	mux.Handle("PUT /api/items/{name}/image", authMW(requireManager(http.HandlerFunc(itemsHandler.UploadImage))))
	mux.Handle("GET /api/items/{name}/image", authMW(http.HandlerFunc(itemsHandler.GetImage)))
	mux.Handle("GET /api/items/{name}/activity", authMW(requireManager(http.HandlerFunc(itemsHandler.GetActivity))))

	// Cart (per caller).
	mux.Handle("GET /api/cart", authMW(http.HandlerFunc(cartHandler.List)))
	mux.Handle("POST /api/cart", authMW(http.HandlerFunc(cartHandler.Add)))
	mux.Handle("PUT /api/cart/{name}", authMW(http.HandlerFunc(cartHandler.Update)))
	mux.Handle("DELETE /api/cart/{name}", authMW(http.HandlerFunc(cartHandler.Remove)))

	// Requests: submit and read (all roles), close (manager+).
	mux.Handle("POST /api/requests", authMW(http.HandlerFunc(requestsHandler.Submit)))
	mux.Handle("GET /api/requests", authMW(http.HandlerFunc(requestsHandler.List)))
	mux.Handle("GET /api/requests/{id}", authMW(http.HandlerFunc(requestsHandler.Get)))
	mux.Handle("PUT /api/requests/{id}", authMW(requireManager(http.HandlerFunc(requestsHandler.Close))))
	mux.Handle("DELETE /api/requests/{id}", authMW(http.HandlerFunc(requestsHandler.Delete)))

	// Loans: read (all roles), returns and conversions (manager+).
	mux.Handle("GET /api/loans", authMW(http.HandlerFunc(loansHandler.List)))
	mux.Handle("GET /api/loans/{id}", authMW(http.HandlerFunc(loansHandler.Get)))
	mux.Handle("POST /api/loans/{id}/return", authMW(requireManager(http.HandlerFunc(loansHandler.Return))))
	mux.Handle("POST /api/loans/{id}/convert", authMW(requireManager(http.HandlerFunc(loansHandler.Convert))))

	// Disbursements (read only).
	mux.Handle("GET /api/disbursements", authMW(http.HandlerFunc(disbursementsHandler.List)))
	mux.Handle("GET /api/disbursements/{id}", authMW(http.HandlerFunc(disbursementsHandler.Get)))

	return mux
}
