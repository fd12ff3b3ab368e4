package validation

// datePattern accepts a bare date or a date-time with optional seconds,
// fraction and zone, matching what models.ParseTimestamp understands.
const datePattern = `^\\d{4}-\\d{2}-\\d{2}([T ]\\d{2}:\\d{2}(:\\d{2}(\\.\\d+)?)?(Z|[+-]\\d{2}:?\\d{2})?)?$`

const statusEnum = `["pending", "active", "followed-up", "not-responded", "rejected", "accepted"]`

var SignupSchema = MustCompile("signup", `{
	"type": "object",
	"required": ["email", "password"],
	"properties": {
		"email":    {"type": "string", "minLength": 3, "maxLength": 255},
		"password": {"type": "string", "minLength": 6, "maxLength": 256},
		"name":     {"type": ["string", "null"], "maxLength": 255}
	},
	"additionalProperties": false
}`)

var LoginSchema = MustCompile("login", `{
	"type": "object",
	"required": ["email", "password"],
	"properties": {
		"email":    {"type": "string", "minLength": 1},
		"password": {"type": "string", "minLength": 1}
	}
}`)

var ApplicationCreateSchema = MustCompile("application_create", `{
	"type": "object",
	"required": ["company_name", "role_title", "city", "country", "applied_date"],
	"properties": {
		"company_name":    {"type": "string", "minLength": 1, "maxLength": 255},
		"role_title":      {"type": "string", "minLength": 1, "maxLength": 255},
		"city":            {"type": "string", "maxLength": 255},
		"country":         {"type": "string", "maxLength": 255},
		"salary":          {"type": ["string", "null"], "maxLength": 100},
		"applied_date":    {"type": "string", "pattern": "`+datePattern+`"},
		"followup_date":   {"type": ["string", "null"], "pattern": "`+datePattern+`"},
		"followed_up_at":  {"type": ["string", "null"], "pattern": "`+datePattern+`"},
		"status":          {"enum": `+statusEnum+`},
		"followup_method": {"type": ["string", "null"], "maxLength": 100},
		"notes":           {"type": ["string", "null"], "maxLength": 5000}
	},
	"additionalProperties": false
}`)

var ApplicationUpdateSchema = MustCompile("application_update", `{
	"type": "object",
	"minProperties": 1,
	"properties": {
		"company_name":    {"type": "string", "minLength": 1, "maxLength": 255},
		"role_title":      {"type": "string", "minLength": 1, "maxLength": 255},
		"city":            {"type": "string", "maxLength": 255},
		"country":         {"type": "string", "maxLength": 255},
		"salary":          {"type": ["string", "null"], "maxLength": 100},
		"applied_date":    {"type": "string", "pattern": "`+datePattern+`"},
		"followup_date":   {"type": ["string", "null"], "pattern": "`+datePattern+`"},
		"followed_up_at":  {"type": ["string", "null"], "pattern": "`+datePattern+`"},
		"status":          {"enum": `+statusEnum+`},
		"followup_method": {"type": ["string", "null"], "maxLength": 100},
		"notes":           {"type": ["string", "null"], "maxLength": 5000}
	},
	"additionalProperties": false
}`)
