package model

import "time"

// Class describes a bookable workshop class.  Schedule slots reference a
// class and inherit its max_participants unless they carry an override.
//
// Fields:
//  ID              – primary key identifier.
//  Name            – display name of the class.
//  Description     – optional long description.
//  DurationMinutes – length of one session, used for calendar sync.
//  Price           – price per person in the smallest currency unit.
//  MaxParticipants – default seat capacity for slots of this class.
//  IsActive        – inactive classes are hidden from the public catalog.
//  SortOrder       – manual ordering for the public catalog.
type Class struct {
    ID              uint64    // classes.id
    Name            string    // classes.name
    Description     *string   // classes.description (nullable)
    DurationMinutes uint32    // classes.duration_minutes
    Price           uint32    // classes.price
    MaxParticipants uint32    // classes.max_participants
    IsActive        bool      // classes.is_active
    SortOrder       int       // classes.sort_order
    CreatedAt       time.Time // classes.created_at
    UpdatedAt       time.Time // classes.updated_at
}
