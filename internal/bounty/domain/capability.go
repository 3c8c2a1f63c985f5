package domain

// Capability is what a caller is allowed to do on a bounty. Capabilities
// are derived from wallet addresses, never stored.
type Capability int

const (
	CapNone Capability = iota
	// CapAuthor belongs to the researcher behind a specific submission.
	CapAuthor
	// CapTriager may grade submissions and disclose reports, but not
	// accept or reject them. The owner always holds it; a designated
	// triager wallet holds it too.
	CapTriager
	// CapOwner is the bounty creator's full control, including close.
	CapOwner
)

// CapabilityOf resolves the strongest capability caller holds on b.
func CapabilityOf(b *Bounty, caller string) Capability {
	switch caller {
	case "":
		return CapNone
	case b.Owner:
		return CapOwner
	case b.Triager:
		if b.Triager != "" {
			return CapTriager
		}
	}
	return CapNone
}

// CanTriage reports whether caller may grade submissions on b.
func CanTriage(b *Bounty, caller string) bool {
	return CapabilityOf(b, caller) >= CapTriager
}

// CanResolve reports whether caller may accept or reject submissions
// on b. Triage authority does not extend to verdicts.
func CanResolve(b *Bounty, caller string) bool {
	return CapabilityOf(b, caller) == CapOwner
}

// CanClose reports whether caller may settle b before its end time.
func CanClose(b *Bounty, caller string) bool {
	return CapabilityOf(b, caller) == CapOwner
}

// CanDisclose reports whether caller may change the visibility of sub.
// The owner and triager may disclose any report. The author may reveal
// their own, but not while it is still pending triage.
func CanDisclose(b *Bounty, sub *Submission, caller string) bool {
	if CapabilityOf(b, caller) >= CapTriager {
		return true
	}
	return caller != "" && caller == sub.Researcher && sub.State != StatePending
}
