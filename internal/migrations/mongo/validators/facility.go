package validators

import "go.mongodb.org/mongo-driver/bson"

var FacilityValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"club_id",
			"name",
			"capacity_policy",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"club_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"labels": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "string",
				},
			},

			"contact_phone": bson.M{
				"bsonType": "string",
			},

			"capacity_policy": bson.M{
				"bsonType": "object",
				"required": []string{"max_concurrent"},
				"properties": bson.M{
					"max_concurrent": bson.M{
						"bsonType": "int",
						"minimum":  1,
						"maximum":  200,
					},
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
