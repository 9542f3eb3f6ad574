package model

import "time"

// SurgeryRecord is the legacy freeform follow-up record kept from the first
// iteration of the system, before the structured count tables existed. Unlike
// metric rows it identifies an individual case and supports partial updates.
//
// Fields:
//  ID          – primary key identifier.
//  OwnerID     – users.id of the reporting user.
//  SurgeryDate – day the surgery took place.
//  PatientName – patient the record refers to.
//  Procedure   – name of the surgical procedure.
//  Doctor      – operating doctor.
//  Department  – hospital department.
//  Notes       – optional free-text notes (nullable).
//  Outcome     – optional outcome summary (nullable).
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last update.
type SurgeryRecord struct {
	ID          uint64
	OwnerID     uint64
	SurgeryDate time.Time
	PatientName string
	Procedure   string
	Doctor      string
	Department  string
	Notes       *string
	Outcome     *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
