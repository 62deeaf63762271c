package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/parkpass/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	geoPointInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "GeoPointInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"lat": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"lon": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
		},
	})

	legType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteLeg",
		Fields: graphql.Fields{
			"coordinates": &graphql.Field{Type: graphql.NewList(geoPointType)},
			"distance":    &graphql.Field{Type: graphql.Float},
			"duration":    &graphql.Field{Type: graphql.Float},
			"mode":        &graphql.Field{Type: graphql.String},
			"is_fallback": &graphql.Field{Type: graphql.Boolean},
		},
	})

	resultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ParkingRoute",
		Fields: graphql.Fields{
			"ok":            &graphql.Field{Type: graphql.Boolean},
			"parking":       &graphql.Field{Type: geoPointType},
			"driving_route": &graphql.Field{Type: legType},
			"walking_route": &graphql.Field{Type: legType},
			"error":         &graphql.Field{Type: graphql.String},
			"message":       &graphql.Field{Type: graphql.String},
			"summary":       &graphql.Field{Type: graphql.String},
		},
	})

	recordType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SearchRecord",
		Fields: graphql.Fields{
			"id":                &graphql.Field{Type: graphql.String},
			"request_id":        &graphql.Field{Type: graphql.String},
			"origin":            &graphql.Field{Type: geoPointType},
			"destination":       &graphql.Field{Type: geoPointType},
			"walk_time_seconds": &graphql.Field{Type: graphql.Int},
			"ok":                &graphql.Field{Type: graphql.Boolean},
			"error_code":        &graphql.Field{Type: graphql.String},
			"parking":           &graphql.Field{Type: geoPointType},
			"drive_seconds":     &graphql.Field{Type: graphql.Float},
			"walk_seconds":      &graphql.Field{Type: graphql.Float},
			"drive_fallback":    &graphql.Field{Type: graphql.Boolean},
			"walk_fallback":     &graphql.Field{Type: graphql.Boolean},
			"created_at":        &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"parkingRoute": &graphql.Field{
				Type:        resultType,
				Description: "Find free parking near the destination and build the drive and walk legs",
				Args: graphql.FieldConfigArgument{
					"origin":          &graphql.ArgumentConfig{Type: graphql.NewNonNull(geoPointInput)},
					"destination":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(geoPointInput)},
					"walkTimeSeconds": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					origin := pointArg(p.Args["origin"])
					destination := pointArg(p.Args["destination"])
					var walkTime *int
					if v, ok := p.Args["walkTimeSeconds"].(int); ok {
						walkTime = &v
					}

					req, err := buildRequest(origin, destination, walkTime)
					if err != nil {
						return nil, err
					}
					res := deps.Planner.Plan(p.Context, req)
					return resultMap(res), nil
				},
			},
			"history": &graphql.Field{
				Type:        graphql.NewList(recordType),
				Description: "Past parking-route searches, newest first",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.History == nil {
						return nil, errors.New("search history is not configured")
					}
					offset, _ := p.Args["offset"].(int)
					limit, _ := p.Args["limit"].(int)
					records, _, err := deps.History.List(p.Context, offset, limit)
					if err != nil {
						return nil, err
					}
					out := make([]map[string]interface{}, 0, len(records))
					for _, r := range records {
						out = append(out, recordMap(r))
					}
					return out, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func pointArg(v interface{}) *domain.GeoPoint {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	lat, latOK := m["lat"].(float64)
	lon, lonOK := m["lon"].(float64)
	if !latOK || !lonOK {
		return nil
	}
	return &domain.GeoPoint{Lat: lat, Lon: lon}
}

func pointMap(p *domain.GeoPoint) interface{} {
	if p == nil {
		return nil
	}
	return map[string]interface{}{"lat": p.Lat, "lon": p.Lon}
}

func legMap(leg *domain.RouteLeg) interface{} {
	if leg == nil {
		return nil
	}
	coords := make([]interface{}, 0, len(leg.Coordinates))
	for i := range leg.Coordinates {
		coords = append(coords, pointMap(&leg.Coordinates[i]))
	}
	return map[string]interface{}{
		"coordinates": coords,
		"distance":    leg.DistanceMeters,
		"duration":    leg.DurationSeconds,
		"mode":        string(leg.Mode),
		"is_fallback": leg.IsFallback,
	}
}

func resultMap(res domain.ParkingRouteResult) map[string]interface{} {
	m := map[string]interface{}{
		"ok":      res.OK,
		"summary": res.Summary(),
	}
	if res.OK {
		m["parking"] = pointMap(res.Parking)
		m["driving_route"] = legMap(res.DrivingRoute)
		m["walking_route"] = legMap(res.WalkingRoute)
	} else {
		m["error"] = string(res.Error)
		m["message"] = res.Message
	}
	return m
}

func recordMap(r domain.SearchRecord) map[string]interface{} {
	return map[string]interface{}{
		"id":                r.ID,
		"request_id":        r.RequestID,
		"origin":            pointMap(&r.Origin),
		"destination":       pointMap(&r.Destination),
		"walk_time_seconds": r.WalkTimeSeconds,
		"ok":                r.OK,
		"error_code":        string(r.ErrorCode),
		"parking":           pointMap(r.Parking),
		"drive_seconds":     r.DriveSeconds,
		"walk_seconds":      r.WalkSeconds,
		"drive_fallback":    r.DriveFallback,
		"walk_fallback":     r.WalkFallback,
		"created_at":        r.CreatedAt.Format(time.RFC3339),
	}
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
