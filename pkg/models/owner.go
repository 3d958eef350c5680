package models

// Owner methods report the user a record belongs to.

func (s *Site) Owner() UserID           { return s.UserID }
func (p *Page) Owner() UserID           { return p.UserID }
func (s *Section) Owner() UserID        { return s.UserID }
func (i *SectionItem) Owner() UserID    { return i.UserID }
func (p *Product) Owner() UserID        { return p.UserID }
func (o *Order) Owner() UserID          { return o.UserID }
func (a *Audience) Owner() UserID       { return a.UserID }
func (f *Folder) Owner() UserID         { return f.UserID }
func (b *BookingService) Owner() UserID { return b.UserID }
func (b *Booking) Owner() UserID        { return b.UserID }
