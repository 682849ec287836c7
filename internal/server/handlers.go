package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/formbase/formbase/internal/auth"
	"github.com/formbase/formbase/internal/catalog"
	"github.com/formbase/formbase/internal/crud"
	"github.com/formbase/formbase/internal/query"
	"github.com/formbase/formbase/internal/sqlident"
)

// Health reports whether the database connection is alive.
func (s *Server) Health(c *fiber.Ctx) error {
	if err := s.drv.Ping(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{"code": "UNAVAILABLE", "message": err.Error()},
		})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "ok", "database": s.drv.DatabaseName()}})
}

// Login checks the admin credential and returns a bearer token.
func (s *Server) Login(c *fiber.Ctx) error {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "INVALID_PAYLOAD", "Invalid JSON body")
	}

	token, err := s.auth.Login(body.Username, body.Password)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": fiber.Map{"code": "AUTH_REJECTED", "message": "invalid credentials"},
		})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"token": token}})
}

// CreateTable defines a new dynamic table or extends an existing one.
func (s *Server) CreateTable(c *fiber.Ctx) error {
	var body struct {
		EntityName string            `json:"entityName"`
		TableName  string            `json:"tableName"`
		Fields     map[string]string `json:"fields"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "INVALID_PAYLOAD", "Invalid JSON body")
	}
	if body.TableName == "" {
		return badRequest(c, "MISSING_TABLE", "tableName is required")
	}
	if len(body.Fields) == 0 {
		return badRequest(c, "MISSING_FIELDS", "fields must be a non-empty map of column to type")
	}
	if body.EntityName == "" {
		body.EntityName = body.TableName
	}

	def, err := s.engine.DefineOrExtend(c.Context(), body.EntityName, body.TableName, body.Fields)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": def})
}

// ListTables returns every catalog definition.
func (s *Server) ListTables(c *fiber.Ctx) error {
	defs, err := s.cat.List(c.Context())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": defs})
}

// GetTable returns one catalog definition by physical name.
func (s *Server) GetTable(c *fiber.Ctx) error {
	name := c.Params("name")
	def, err := s.cat.Get(c.Context(), name)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return notFound(c, "Table not registered: "+name)
		}
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": def})
}

// InsertRecord adds one row to a dynamic table.
func (s *Server) InsertRecord(c *fiber.Ctx) error {
	var body struct {
		Table string         `json:"table"`
		Data  map[string]any `json:"data"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "INVALID_PAYLOAD", "Invalid JSON body")
	}
	if body.Table == "" {
		return badRequest(c, "MISSING_TABLE", "table is required")
	}
	if len(body.Data) == 0 {
		return badRequest(c, "EMPTY_PAYLOAD", "data must be a non-empty object")
	}

	rows, err := s.crud.Insert(c.Context(), body.Table, body.Data)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": first(rows)})
}

// SearchRecords reads rows by equality filter, or runs a trusted raw SELECT.
func (s *Server) SearchRecords(c *fiber.Ctx) error {
	var body struct {
		Table  string         `json:"table"`
		Filter map[string]any `json:"filter"`
		Query  string         `json:"query"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "INVALID_PAYLOAD", "Invalid JSON body")
	}

	if body.Query != "" {
		rows, err := s.crud.ReadStatement(c.Context(), body.Query)
		if err != nil {
			return s.respondError(c, err)
		}
		return c.JSON(fiber.Map{"data": rows})
	}

	if body.Table == "" {
		return badRequest(c, "MISSING_TABLE", "table or query is required")
	}

	var filter *query.Filter
	if len(body.Filter) > 0 {
		filter = &query.Filter{Equals: body.Filter}
	}
	rows, err := s.crud.Read(c.Context(), body.Table, filter)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": rows})
}

// UpdateRecords modifies rows matching the mandatory where clause.
func (s *Server) UpdateRecords(c *fiber.Ctx) error {
	var body struct {
		Table string         `json:"table"`
		Data  map[string]any `json:"data"`
		Where map[string]any `json:"where"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "INVALID_PAYLOAD", "Invalid JSON body")
	}
	if body.Table == "" {
		return badRequest(c, "MISSING_TABLE", "table is required")
	}
	if len(body.Data) == 0 {
		return badRequest(c, "EMPTY_PAYLOAD", "data must be a non-empty object")
	}
	if len(body.Where) == 0 {
		return badRequest(c, "MISSING_FILTER", "where is required; unconditional updates are not permitted")
	}

	rows, err := s.crud.Update(c.Context(), body.Table, body.Data, &query.Filter{Equals: body.Where})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": rows})
}

// DeleteRecords removes rows matching the mandatory where clause.
func (s *Server) DeleteRecords(c *fiber.Ctx) error {
	var body struct {
		Table string         `json:"table"`
		Where map[string]any `json:"where"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "INVALID_PAYLOAD", "Invalid JSON body")
	}
	if body.Table == "" {
		return badRequest(c, "MISSING_TABLE", "table is required")
	}
	if len(body.Where) == 0 {
		return badRequest(c, "MISSING_FILTER", "where is required; unconditional deletes are not permitted")
	}

	rows, err := s.crud.Delete(c.Context(), body.Table, &query.Filter{Equals: body.Where})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": rows})
}

// RunReport executes a pre-registered named query.
func (s *Server) RunReport(c *fiber.Ctx) error {
	result, err := s.crud.RunNamed(c.Context(), c.Params("slug"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": result})
}

// RegisterReport stores a named query under a slug.
func (s *Server) RegisterReport(c *fiber.Ctx) error {
	var body struct {
		Slug string `json:"slug"`
		SQL  string `json:"sql"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "INVALID_PAYLOAD", "Invalid JSON body")
	}
	if body.SQL == "" {
		return badRequest(c, "MISSING_QUERY", "sql is required")
	}

	slug, err := s.crud.RegisterNamed(c.Context(), body.Slug, body.SQL)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"slug": slug}})
}

// respondError maps engine and executor errors onto HTTP statuses. Validation
// failures are caller mistakes (400); unknown slugs are 404; anything else is
// a backend execution error surfaced with the native message.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, sqlident.ErrInvalidIdentifier):
		return badRequest(c, "INVALID_IDENTIFIER", err.Error())
	case errors.Is(err, sqlident.ErrInvalidType):
		return badRequest(c, "INVALID_TYPE", err.Error())
	case errors.Is(err, query.ErrEmptyPayload):
		return badRequest(c, "EMPTY_PAYLOAD", err.Error())
	case errors.Is(err, query.ErrMissingFilter):
		return badRequest(c, "MISSING_FILTER", err.Error())
	case errors.Is(err, query.ErrNonSelect):
		return badRequest(c, "NON_SELECT", err.Error())
	case errors.Is(err, crud.ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": fiber.Map{"code": "AUTH_REJECTED", "message": err.Error()},
		})
	default:
		s.log.Error("request failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fiber.Map{"code": "EXECUTION_ERROR", "message": err.Error()},
		})
	}
}

func badRequest(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": fiber.Map{"code": code, "message": message},
	})
}

func notFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": fiber.Map{"code": "NOT_FOUND", "message": message},
	})
}

func first(rows []map[string]any) any {
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}
