package risk

// Profile records the observable history the scorer reads for a wallet. A
// profile is created lazily on first write-path touch and never deleted.
type Profile struct {
	CreatedAt       int64
	LastReversalAt  int64
	ReversalCount   uint64
	AbnormalTxCount uint64
}

// Clone returns a copy of the profile.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
