package outbox

const activityRecordedSchema = `{
  "type": "object",
  "title": "TrustActivityRecorded",
  "properties": {
    "activity_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "kind": {"type": "string"},
    "points": {"type": "integer", "minimum": -100, "maximum": 100},
    "description": {"type": "string"},
    "project_id": {"type": "string"},
    "metadata": {"type": "object"},
    "score_after": {"type": "integer", "minimum": 0, "maximum": 100},
    "created_at": {"type": "string", "format": "date-time"}
  },
  "required": ["activity_id", "tenant_id", "user_id", "kind", "points", "description", "score_after", "created_at"],
  "additionalProperties": false
}`

const scoreChangedSchema = `{
  "type": "object",
  "title": "TrustScoreChanged",
  "properties": {
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "activity_id": {"type": "string"},
    "previous_score": {"type": "integer", "minimum": 0, "maximum": 100},
    "current_score": {"type": "integer", "minimum": 0, "maximum": 100},
    "level": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["tenant_id", "user_id", "activity_id", "previous_score", "current_score", "level", "occurred_at"],
  "additionalProperties": false
}`
