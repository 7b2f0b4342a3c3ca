package model

import "time"

// Schedule is one bookable (class, date, start time) slot.  The triple is
// unique.  MaxParticipants overrides the class default when non-nil.
//
// Fields:
//  ID              – primary key identifier.
//  ClassID         – class this slot belongs to.
//  ScheduleDate    – slot date (YYYY-MM-DD).
//  StartTime       – slot start time (HH:MM).
//  MaxParticipants – optional per-slot capacity override.
//  IsActive        – soft-delete flag; inactive slots accept no bookings.
type Schedule struct {
    ID              uint64    // class_schedules.id
    ClassID         uint64    // class_schedules.class_id
    ScheduleDate    string    // class_schedules.schedule_date
    StartTime       string    // class_schedules.start_time
    MaxParticipants *uint32   // class_schedules.max_participants (nullable)
    IsActive        bool      // class_schedules.is_active
    CreatedAt       time.Time // class_schedules.created_at
    UpdatedAt       time.Time // class_schedules.updated_at
}

// ScheduleSlot is the public browse view of a slot: the schedule joined
// with its effective capacity and the live count of booked seats.
type ScheduleSlot struct {
    ScheduleID     uint64 `json:"schedule_id"`
    ScheduleDate   string `json:"schedule_date"`
    StartTime      string `json:"start_time"`
    MaxSeats       uint32 `json:"max_seats"`
    ReservedCount  uint32 `json:"reserved_count"`
    RemainingSeats uint32 `json:"remaining_seats"`
}
