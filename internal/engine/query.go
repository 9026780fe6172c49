package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"atelier-backend/internal/metadata"
	"atelier-backend/internal/store"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// ListParams is the parsed query surface of a list request.
type ListParams struct {
	Search    string
	Page      int
	PageSize  int
	Sort      string // column name, already mapped from the API value
	Direction string // ASC or DESC
}

// sortColumns maps the API sort values to columns shared by every entity.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// ParseListParams parses search, pagination, and sort query parameters.
// Out-of-range page values fall back to defaults; unknown sort or direction
// values are a 400.
func ParseListParams(c *fiber.Ctx, entity *metadata.Entity) (*ListParams, error) {
	p := &ListParams{
		Search:    strings.TrimSpace(c.Query("search")),
		Page:      1,
		PageSize:  defaultPageSize,
		Sort:      entity.DefaultSort,
		Direction: "DESC",
	}

	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Page = n
		}
	}
	if v := c.Query("pageSize"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.PageSize = n
			if p.PageSize > maxPageSize {
				p.PageSize = maxPageSize
			}
		}
	}

	if v := c.Query("sort"); v != "" {
		col, ok := sortColumns[v]
		if !ok {
			return nil, NewAppError("UNKNOWN_FIELD", 400, fmt.Sprintf("Unsupported sort field: %s", v))
		}
		p.Sort = col
	}

	switch strings.ToLower(c.Query("direction")) {
	case "":
	case "asc":
		p.Direction = "ASC"
	case "desc":
		p.Direction = "DESC"
	default:
		return nil, NewAppError("INVALID_PAYLOAD", 400, fmt.Sprintf("Unsupported sort direction: %s", c.Query("direction")))
	}

	return p, nil
}

// QueryResult pairs a SQL string with its parameters.
type QueryResult struct {
	SQL    string
	Params []any
}

// BuildListSQL builds the tenant-scoped, searched, sorted, paginated SELECT.
func BuildListSQL(d store.Dialect, entity *metadata.Entity, tenantID string, p *ListParams) QueryResult {
	pb := d.NewParamBuilder()
	where := buildWhere(d, entity, tenantID, p, pb)

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s %s",
		strings.Join(entity.Columns(), ", "), entity.Table, where, p.Sort, p.Direction)
	sql += fmt.Sprintf(" LIMIT %s OFFSET %s",
		pb.Add(p.PageSize), pb.Add((p.Page-1)*p.PageSize))

	return QueryResult{SQL: sql, Params: pb.Params()}
}

// BuildCountSQL builds the COUNT query over the same predicate as the
// select, so pagination totals are exact regardless of page size.
func BuildCountSQL(d store.Dialect, entity *metadata.Entity, tenantID string, p *ListParams) QueryResult {
	pb := d.NewParamBuilder()
	where := buildWhere(d, entity, tenantID, p, pb)
	sql := fmt.Sprintf("SELECT COUNT(*) AS count FROM %s WHERE %s", entity.Table, where)
	return QueryResult{SQL: sql, Params: pb.Params()}
}

// buildWhere produces the tenant-equality predicate, ANDed with an
// OR-of-ILIKE across the entity's searchable columns when a search term is
// present. Every query predicate includes tenant equality; cross-tenant
// reads are impossible by construction.
func buildWhere(d store.Dialect, entity *metadata.Entity, tenantID string, p *ListParams, pb store.ParamBuilder) string {
	where := fmt.Sprintf("tenant_id = %s", pb.Add(tenantID))

	if p.Search != "" {
		pattern := "%" + p.Search + "%"
		clauses := make([]string, len(entity.SearchColumns))
		for i, col := range entity.SearchColumns {
			clauses[i] = d.ILikeExpr(col, pb, pattern)
		}
		where += " AND (" + strings.Join(clauses, " OR ") + ")"
	}
	return where
}
