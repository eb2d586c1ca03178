package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/tifprobe/internal/core/domain"
	"github.com/samirrijal/tifprobe/internal/pkg/geospatial"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lon": &graphql.Field{Type: graphql.Float},
			"lat": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"lon_min": &graphql.Field{Type: graphql.Float},
			"lon_max": &graphql.Field{Type: graphql.Float},
			"lat_min": &graphql.Field{Type: graphql.Float},
			"lat_max": &graphql.Field{Type: graphql.Float},
		},
	})

	sampleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Sample",
		Fields: graphql.Fields{
			"level":       &graphql.Field{Type: graphql.Int},
			"row":         &graphql.Field{Type: graphql.Int},
			"col":         &graphql.Field{Type: graphql.Int},
			"distance_km": &graphql.Field{Type: graphql.Float},
			"lon":         &graphql.Field{Type: graphql.Float},
			"lat":         &graphql.Field{Type: graphql.Float},
			"footprint":   &graphql.Field{Type: boundsType},
			"status":      &graphql.Field{Type: graphql.String},
			"value":       &graphql.Field{Type: graphql.Float},
		},
	})

	samplesField := func(seq domain.Sequence) *graphql.Field {
		return &graphql.Field{
			Type: graphql.NewList(sampleType),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				run := p.Source.(domain.ScanRun)
				return deps.Scans.Samples(p.Context, run.ID, seq)
			},
		}
	}

	scanRunType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ScanRun",
		Fields: graphql.Fields{
			"id":                  &graphql.Field{Type: graphql.String},
			"workflow":            &graphql.Field{Type: graphql.String},
			"path":                &graphql.Field{Type: graphql.String},
			"file_name":           &graphql.Field{Type: graphql.String},
			"target":              &graphql.Field{Type: geoPointType},
			"tolerance_km":        &graphql.Field{Type: graphql.Float},
			"stop_on_first_match": &graphql.Field{Type: graphql.Boolean},
			"width":               &graphql.Field{Type: graphql.Int},
			"height":              &graphql.Field{Type: graphql.Int},
			"band_count":          &graphql.Field{Type: graphql.Int},
			"pixels_visited":      &graphql.Field{Type: graphql.Float},
			"matched_count":       &graphql.Field{Type: graphql.Int},
			"validated_count":     &graphql.Field{Type: graphql.Int},
			"export_path":         &graphql.Field{Type: graphql.String},
			"warning":             &graphql.Field{Type: graphql.String},
			"duration_ms": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return float64(p.Source.(domain.ScanRun).Duration.Microseconds()) / 1000, nil
				},
			},
			"created_at": &graphql.Field{Type: graphql.DateTime},
			"matched":    samplesField(domain.SequenceMatched),
			"validated":  samplesField(domain.SequenceValidated),
		},
	})

	scanPageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ScanPage",
		Fields: graphql.Fields{
			"data":  &graphql.Field{Type: graphql.NewList(scanRunType)},
			"total": &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"scan": &graphql.Field{
				Type:        scanRunType,
				Description: "Get a scan run by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					run, err := deps.Scans.GetByID(p.Context, p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return *run, nil
				},
			},
			"scans": &graphql.Field{
				Type:        scanPageType,
				Description: "List scan runs, newest first",
				Args: graphql.FieldConfigArgument{
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					runs, total, err := deps.Scans.List(p.Context, p.Args["limit"].(int), p.Args["offset"].(int))
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{"data": runs, "total": total}, nil
				},
			},
			"workflows": &graphql.Field{
				Type:        graphql.NewList(graphql.String),
				Description: "Registered workflow keys",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Validation.Workflows(), nil
				},
			},
			"distance": &graphql.Field{
				Type:        graphql.Float,
				Description: "Great-circle distance in kilometres",
				Args: graphql.FieldConfigArgument{
					"lon1": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lat1": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon2": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lat2": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					a := domain.GeoPoint{Lon: p.Args["lon1"].(float64), Lat: p.Args["lat1"].(float64)}
					b := domain.GeoPoint{Lon: p.Args["lon2"].(float64), Lat: p.Args["lat2"].(float64)}
					if err := a.Validate(); err != nil {
						return nil, err
					}
					if err := b.Validate(); err != nil {
						return nil, err
					}
					return geospatial.HaversineKm(a.Lon, a.Lat, b.Lon, b.Lat), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
