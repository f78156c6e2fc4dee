package model

import "time"

// User is a buyer profile keyed by the opaque identity the external
// transport authenticates (a chat user id).  The engine never creates
// identities itself; profiles are upserted by the transport before or
// during booking.  Blocked buyers cannot submit new bookings.
//
// Fields:
//  BuyerID       – opaque external identity (primary key).
//  Name          – first name as entered by the buyer.
//  Surname       – surname as entered by the buyer.
//  Phone         – contact phone number.
//  Blocked       – whether the buyer is banned from booking.
//  BlockedReason – why the buyer was blocked (empty when not).
//  CreatedAt     – timestamp of first profile upsert.
//  UpdatedAt     – timestamp of last update.
type User struct {
    BuyerID       int64     // users.buyer_id
    Name          string    // users.name
    Surname       string    // users.surname
    Phone         string    // users.phone
    Blocked       bool      // users.blocked
    BlockedReason string    // users.blocked_reason
    CreatedAt     time.Time // users.created_at
    UpdatedAt     time.Time // users.updated_at
}
