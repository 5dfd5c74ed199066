package router

import "github.com/labstack/echo/v4"

// registerUserAdmin mounts account administration under /auth/users.
func registerUserAdmin(auth *echo.Group, d Deps) {
	g := auth.Group("/users", d.authed(), d.admin())
	g.GET("", d.Users.List)
	g.PUT("/:id/privilege", d.Users.SetPrivilege)
	g.PUT("/:id/ban", d.Users.Ban)
	g.PUT("/:id/unban", d.Users.Unban)
	g.PUT("/:id/soft-delete", d.Users.SoftDelete)
}

func registerStatistics(api *echo.Group, d Deps) {
	g := api.Group("/statistics", d.authed(), d.admin())
	g.GET("/users/:id", d.Stats.User)
	g.GET("/books/:id", d.Stats.Book)
	g.GET("/overview", d.Stats.Overview)
}
