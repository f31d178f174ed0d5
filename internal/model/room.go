package model

type Room struct {
	Base
	Name  string `db:"name" json:"name"`
	Floor int    `db:"floor" json:"floor"`
}

type CreateRoomRequest struct {
	Name  string `json:"name" binding:"required,max=60"`
	Floor int    `json:"floor" binding:"gte=0"`
}
