package api

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

const bearerScheme = "bearerAuth"

var pathParamPattern = regexp.MustCompile(`\{([^}]+)\}`)

// buildOpenAPI describes routes as an OpenAPI 3 document.
func buildOpenAPI(routes []Route) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "Resource site API",
			Description: "Accounts, resource listings, purchases and uploads.",
			Version:     "1.0.0",
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			SecuritySchemes: openapi3.SecuritySchemes{
				bearerScheme: &openapi3.SecuritySchemeRef{Value: openapi3.NewJWTSecurityScheme()},
			},
		},
	}

	for _, rt := range routes {
		doc.AddOperation(rt.Path, rt.Method, operationFor(rt))
	}
	return doc
}

func operationFor(rt Route) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.Summary = rt.Summary
	op.OperationID = operationID(rt)
	if rt.Tag != "" {
		op.Tags = []string{rt.Tag}
	}

	for _, m := range pathParamPattern.FindAllStringSubmatch(rt.Path, -1) {
		op.AddParameter(openapi3.NewPathParameter(m[1]).WithSchema(openapi3.NewStringSchema()))
	}
	for _, q := range rt.Query {
		schema := openapi3.NewStringSchema()
		if q == "page" || q == "page_size" {
			schema = openapi3.NewIntegerSchema().WithMin(1)
		}
		op.AddParameter(openapi3.NewQueryParameter(q).WithSchema(schema))
	}

	switch rt.Body {
	case bodyJSON:
		op.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
			WithRequired(true).
			WithJSONSchema(openapi3.NewObjectSchema())}
	case bodyMultipart:
		file := openapi3.NewStringSchema().WithFormat("binary")
		form := openapi3.NewObjectSchema().WithProperty(rt.FileField, file)
		if rt.FileField == avatarField {
			form = openapi3.NewObjectSchema().WithProperty(rt.FileField, openapi3.NewArraySchema().WithItems(file))
		}
		op.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
			WithRequired(true).
			WithContent(openapi3.NewContentWithFormDataSchema(form))}
	}

	status := rt.Status
	if status == 0 {
		status = http.StatusOK
	}
	op.AddResponse(status, openapi3.NewResponse().
		WithDescription(http.StatusText(status)).
		WithJSONSchema(openapi3.NewObjectSchema()))
	op.AddResponse(http.StatusBadRequest, errorResponse(http.StatusBadRequest))
	if rt.AuthRequired || rt.OptionalAuth {
		security := openapi3.SecurityRequirements{openapi3.SecurityRequirement{bearerScheme: []string{}}}
		if rt.OptionalAuth {
			security = append(security, openapi3.SecurityRequirement{})
		}
		op.Security = &security
	}
	if rt.AuthRequired {
		op.AddResponse(http.StatusUnauthorized, errorResponse(http.StatusUnauthorized))
	}
	if rt.RateLimited {
		op.AddResponse(http.StatusTooManyRequests, errorResponse(http.StatusTooManyRequests))
	}
	if rt.FileField == avatarField {
		op.AddResponse(http.StatusMultiStatus, openapi3.NewResponse().
			WithDescription("Some files were stored and some failed").
			WithJSONSchema(openapi3.NewObjectSchema()))
	}
	return op
}

func errorResponse(status int) *openapi3.Response {
	detail := openapi3.NewObjectSchema().
		WithProperty("code", openapi3.NewIntegerSchema()).
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("request_id", openapi3.NewStringSchema())
	return openapi3.NewResponse().
		WithDescription(http.StatusText(status)).
		WithJSONSchema(openapi3.NewObjectSchema().WithProperty("error", detail))
}

// operationID derives a stable id such as "put_user_profile_change_pwd_uuid".
func operationID(rt Route) string {
	path := strings.NewReplacer("{", "", "}", "").Replace(rt.Path)
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	return strings.ToLower(rt.Method) + "_" + strings.Join(parts, "_")
}

func (h *Handler) serveOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.openapi)
}
