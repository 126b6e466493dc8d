package catalog

import "github.com/santhosh-tekuri/jsonschema/v5"

// feedSchema is the contract for incoming catalog files. Unknown extra
// fields are allowed; the required core is the code/name/status triple plus
// a located site.
var feedSchema = jsonschema.MustCompileString("charge_points.schema.json", `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["charge_points"],
  "properties": {
    "charge_points": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["code", "name", "status", "location"],
        "properties": {
          "code": {"type": "string", "minLength": 1},
          "name": {"type": "string", "minLength": 1},
          "status": {"type": "string"},
          "location": {
            "type": "object",
            "required": ["city"],
            "properties": {
              "city": {"type": "string", "minLength": 1},
              "lat": {"type": "number"},
              "lng": {"type": "number"}
            }
          },
          "connectors": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["type", "power_kw"],
              "properties": {
                "type": {"type": "string"},
                "power_kw": {"type": "number", "exclusiveMinimum": 0}
              }
            }
          },
          "price_per_kwh": {"type": "number", "minimum": 0},
          "price_currency": {"type": "string"}
        }
      }
    }
  }
}`)
