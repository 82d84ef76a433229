package validators

import "go.mongodb.org/mongo-driver/bson"

var ReservationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"created_at",
			"expires_at",
			"status",
		},
		"additionalProperties": false,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"expires_at": bson.M{
				"bsonType": "date",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"RESERVED", "EXPIRED"},
			},
		},
	},
}

var CounterValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "seq"},
		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},
			"seq": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},
		},
	},
}
