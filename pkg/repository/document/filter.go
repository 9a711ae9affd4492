package document

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/nimburion/taskboard/pkg/pagination"
)

// BSONField maps a pagination field name to its bson name.
func BSONField(name string) string {
	if name == "id" {
		return "_id"
	}
	return name
}

// BuildFilter translates clauses into a MongoDB filter. Clauses on distinct
// fields become one document; repeated fields are combined with $and.
func BuildFilter(clauses []pagination.Clause) bson.D {
	filter := bson.D{}
	seen := make(map[string]bool, len(clauses))
	repeated := false
	for _, c := range clauses {
		field := BSONField(c.Field)
		if seen[field] {
			repeated = true
		}
		seen[field] = true
		filter = append(filter, bson.E{Key: field, Value: conditionOperators(c.Condition)})
	}
	if !repeated {
		return filter
	}
	parts := make(bson.A, 0, len(filter))
	for _, e := range filter {
		parts = append(parts, bson.D{e})
	}
	return bson.D{{Key: "$and", Value: parts}}
}

func conditionOperators(c pagination.Condition) bson.D {
	switch c.Kind {
	case pagination.ConditionEqual:
		return bson.D{{Key: "$eq", Value: c.Value.Native()}}
	case pagination.ConditionIn:
		values := make(bson.A, 0, len(c.Values))
		for _, v := range c.Values {
			values = append(values, v.Native())
		}
		return bson.D{{Key: "$in", Value: values}}
	case pagination.ConditionRange:
		ops := bson.D{}
		if c.Lower != nil {
			op := "$gt"
			if c.Lower.Inclusive {
				op = "$gte"
			}
			ops = append(ops, bson.E{Key: op, Value: c.Lower.Value.Native()})
		}
		if c.Upper != nil {
			op := "$lt"
			if c.Upper.Inclusive {
				op = "$lte"
			}
			ops = append(ops, bson.E{Key: op, Value: c.Upper.Value.Native()})
		}
		return ops
	default:
		return bson.D{}
	}
}

// BuildSort orders by field and breaks ties on _id in the same direction.
func BuildSort(field string, order pagination.Order) bson.D {
	dir := 1
	if order == pagination.OrderDesc {
		dir = -1
	}
	key := BSONField(field)
	if key == "" || key == "_id" {
		return bson.D{{Key: "_id", Value: dir}}
	}
	return bson.D{{Key: key, Value: dir}, {Key: "_id", Value: dir}}
}
