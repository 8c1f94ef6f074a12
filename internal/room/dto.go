package room

type BookDTO struct {
	RoomID    int64   `json:"room_id" validate:"required,gt=0"`
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string  `json:"start_time" validate:"required"`
	EndTime   string  `json:"end_time" validate:"required"`
	Title     string  `json:"title" validate:"required,max=200"`
	Attendees []int64 `json:"attendees,omitempty" validate:"omitempty,max=100,dive,gt=0"`
}

type CreateRoomDTO struct {
	Name     string `json:"name" validate:"required,max=100"`
	Location string `json:"location,omitempty" validate:"max=200"`
	Capacity int    `json:"capacity" validate:"required,gt=0,lte=500"`
}
