package router

import "github.com/labstack/echo/v4"

// registerBorrows mounts /borrows. Members act on their own records; the
// full listing is admin only.
func registerBorrows(api *echo.Group, d Deps) {
	g := api.Group("/borrows", d.authed())

	mutations := []echo.MiddlewareFunc{}
	if d.MutationLimit != nil {
		mutations = append(mutations, d.MutationLimit)
	}
	g.POST("", d.Borrows.Borrow, mutations...)
	g.PUT("/:id/return", d.Borrows.Return, mutations...)

	g.GET("", d.Borrows.ListMine)
	g.GET("/overdue", d.Borrows.ListMyOverdue)
	g.GET("/all", d.Borrows.ListAll, d.admin())
	g.GET("/:id", d.Borrows.Get)
}

// registerBooks mounts /books: reads for any signed-in user, writes for
// admins.
func registerBooks(api *echo.Group, d Deps) {
	g := api.Group("/books", d.authed())
	g.GET("", d.Books.List)
	g.GET("/search", d.Books.Search)
	g.GET("/categories", d.Books.Categories)
	g.GET("/categories/:name", d.Books.ByCategory)
	g.GET("/:id", d.Books.Get)

	admin := d.admin()
	g.POST("", d.Books.Create, admin)
	g.PUT("/:id", d.Books.Update, admin)
	g.DELETE("/:id", d.Books.Delete, admin)
	g.PUT("/categories/:name", d.Books.RenameCategory, admin)
}
