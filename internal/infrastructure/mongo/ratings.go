package mongo

import (
	"encoding/json"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

// decodeRatings は ratings フィールドの各保存形式を domain.Ratings に揃える。
// 数値だけのレコードや legacy の rating フィールドは overall として扱う。
func decodeRatings(raw any, legacy *float64) domain.Ratings {
	switch v := raw.(type) {
	case primitive.D:
		return domain.NormalizeRatings(numericMap(v.Map()))
	case primitive.M:
		return domain.NormalizeRatings(numericMap(v))
	case map[string]any:
		return domain.NormalizeRatings(numericMap(v))
	case string:
		var parsed map[string]float64
		if err := json.Unmarshal([]byte(strings.TrimSpace(v)), &parsed); err == nil && len(parsed) > 0 {
			return domain.NormalizeRatings(parsed)
		}
		var flat float64
		if err := json.Unmarshal([]byte(strings.TrimSpace(v)), &flat); err == nil {
			return domain.RatingsFromLegacy(flat)
		}
	default:
		if f, ok := toFloat(v); ok {
			return domain.RatingsFromLegacy(f)
		}
	}
	if legacy != nil {
		return domain.RatingsFromLegacy(*legacy)
	}
	return domain.NormalizeRatings(nil)
}

func encodeRatings(ratings domain.Ratings) bson.M {
	out := make(bson.M, len(ratings))
	for key, value := range ratings {
		out[key] = value
	}
	return out
}

func numericMap(in map[string]any) map[string]float64 {
	out := make(map[string]float64, len(in))
	for key, value := range in {
		if f, ok := toFloat(value); ok {
			out[key] = f
		}
	}
	return out
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	default:
		return 0, false
	}
}
