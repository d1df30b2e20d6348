package api

import (
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
)

// OpenAPIPath serves the generated OpenAPI document
const OpenAPIPath = "/openapi.json"

// RegisterRoutes adds the search web service and its OpenAPI document
func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path("/").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	ws.
		Route(ws.GET("health").
			To(handler.Health).
			Doc("Health check").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(HealthResponse{}).
			Returns(200, "OK", HealthResponse{}).
			Returns(500, "Internal Server Error", ErrorResponse{}))

	ws.
		Route(ws.POST("search").
			To(handler.Search).
			Doc("Search papers with fused dense and sparse retrieval").
			Metadata(restfulspec.KeyOpenAPITags, []string{"search"}).
			Reads(SearchRequest{}).
			Writes(SearchResponse{}).
			Returns(200, "OK", SearchResponse{}).
			Returns(400, "Bad Request", ErrorResponse{}).
			Returns(500, "Internal Server Error", ErrorResponse{}))

	ws.
		Route(ws.POST("compare").
			To(handler.Compare).
			Doc("Highlight shared tokens between a query and a paper").
			Metadata(restfulspec.KeyOpenAPITags, []string{"compare"}).
			Reads(CompareRequest{}).
			Writes(CompareResponse{}).
			Returns(200, "OK", CompareResponse{}).
			Returns(400, "Bad Request", ErrorResponse{}))

	container.Add(ws)

	container.Add(restfulspec.NewOpenAPIService(restfulspec.Config{
		WebServices:                   container.RegisteredWebServices(),
		APIPath:                       OpenAPIPath,
		PostBuildSwaggerObjectHandler: enrichSwaggerObject,
	}))
}

func enrichSwaggerObject(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "litsearch API",
			Description: "Literature search with fused retrieval and token highlights",
			Version:     "1.0.0",
		},
	}
	swo.Tags = []spec.Tag{
		{TagProps: spec.TagProps{Name: "health", Description: "Health checks"}},
		{TagProps: spec.TagProps{Name: "search", Description: "Paper search"}},
		{TagProps: spec.TagProps{Name: "compare", Description: "Text comparison"}},
	}
}
