// Package models defines the entities of the link-in-bio builder.
//
// A [User] owns [Site]s. A site owns [Page]s, a page owns ordered [Section]s and a section owns
// ordered [SectionItem]s. Position columns define the order inside a parent. Builder
// configuration that the server never interprets (content, settings, extra) is stored as
// [JSONMap].
//
// Around the builder core sit commerce ([Product], [Order]), a small CRM ([Audience], [Folder],
// [FolderMember]), bookings ([BookingService], [Booking]) and billing ([Plan], [Checkout],
// [Transaction]).
//
// # Typed IDs
//
// Every entity has its own ID type ([UserID], [SiteID], [SectionID] and so on). All of them are
// instances of the generic [ID], a UUID that knows its table. IDs marshal to plain UUID strings
// in JSON and SQL and to SurrealDB RecordIDs in CBOR, so the same value can be handed to gorm,
// written to an HTTP response or stored in SurrealDB analytics records. The compiler rejects a
// [PageID] where a [SectionID] is expected.
//
// # Ownership
//
// Except for [User], [Plan] and [FolderMember], every entity carries the owning user's ID. Stores
// scope lookups by that column and the HTTP layer reports resources owned by someone else as
// not found.
package models
