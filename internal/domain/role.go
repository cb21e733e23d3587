package domain

import "time"

// Role is a named role record. The set of role rows is bootstrapped lazily:
// account creation upserts the default "user" role if it does not exist yet.
type Role struct {
	Name      string    `json:"name" dynamodbav:"name"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}
