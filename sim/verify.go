package sim

import (
	"errors"
	"fmt"

	"uiccscan/card"
)

// ErrVerificationFailed marks a non-fatal VERIFY failure: the scan proceeds,
// but later reads may be denied by the card.
var ErrVerificationFailed = errors.New("sim: verification failed")

// Triple is the (P1,P2,P3) used to frame a VERIFY command for one
// (generation, credential) pair. Configuration (§6.2 customApdu, or the
// built-in defaults below) supplies these so non-standard card families can
// be accommodated without code changes.
type Triple struct {
	P1, P2, P3 byte
}

// VerifyTable maps (generation, credential) to the wire triple used to
// frame its VERIFY command.
type VerifyTable map[Generation]map[VerifyCredential]Triple

// DefaultVerifyTable returns the built-in (p1,p2,p3) defaults from §4.4,
// used whenever configuration supplies no customApdu override. Values match
// original_source/scanner.py's verify2g*/verify3g* class attributes exactly;
// 2G ADM2/3/4 and 3G ADM1-4/LocalPIN1 each occupy their own P2 slot distinct
// from CHV1/CHV2, since the card distinguishes credentials by P2.
func DefaultVerifyTable() VerifyTable {
	return VerifyTable{
		Generation2G: {
			CredentialADM1: {0x00, 0x00, 0x08},
			CredentialADM2: {0x00, 0x05, 0x08},
			CredentialADM3: {0x00, 0x06, 0x08},
			CredentialADM4: {0x00, 0x07, 0x08},
			CredentialCHV1: {0x00, 0x01, 0x08},
			CredentialCHV2: {0x00, 0x02, 0x08},
		},
		Generation3G: {
			CredentialADM1: {0x00, 0x0A, 0x08},
			CredentialADM2: {0x00, 0x0B, 0x08},
			CredentialADM3: {0x00, 0x0C, 0x08},
			CredentialADM4: {0x00, 0x0D, 0x08},
			CredentialCHV1: {0x00, 0x01, 0x08}, // global PIN
			CredentialCHV2: {0x00, 0x81, 0x08}, // local PIN
		},
	}
}

// Merge overlays overrides on top of the receiver, returning a new table;
// any (generation, credential) present in overrides replaces the base
// entry, everything else is kept.
func (base VerifyTable) Merge(overrides *VerifyTable) VerifyTable {
	if overrides == nil {
		return base
	}
	out := VerifyTable{}
	for gen, creds := range base {
		out[gen] = map[VerifyCredential]Triple{}
		for cred, triple := range creds {
			out[gen][cred] = triple
		}
	}
	for gen, creds := range *overrides {
		if out[gen] == nil {
			out[gen] = map[VerifyCredential]Triple{}
		}
		for cred, triple := range creds {
			out[gen][cred] = triple
		}
	}
	return out
}

// claFor returns the instruction class byte for a VERIFY in the given
// generation.
func claFor(gen Generation) byte {
	if gen == Generation3G {
		return card.CLA_USIM
	}
	return card.CLA_GSM
}

// RunVerifySequence issues VERIFY commands in the fixed order mandated by
// §4.4: ADM1 -> ADM2? -> ADM3? -> ADM4? -> CHV1/GPIN (unless disabled) ->
// CHV2/LPIN, for the given generation. Every configured credential is
// attempted even if an earlier one failed; failures are recorded in the
// transceiver's verify log and returned as a joined, non-fatal error so the
// caller can log it without aborting the scan.
func RunVerifySequence(t *Transceiver, cfg ScanConfig, table VerifyTable, gen Generation) error {
	type step struct {
		cred    VerifyCredential
		code    string
		enabled bool
	}
	steps := []step{
		{CredentialADM1, cfg.ADM1, cfg.ADM1 != ""},
		{CredentialADM2, cfg.ADM2, cfg.UseADM2 && cfg.ADM2 != ""},
		{CredentialADM3, cfg.ADM3, cfg.UseADM3 && cfg.ADM3 != ""},
		{CredentialADM4, cfg.ADM4, cfg.UseADM4 && cfg.ADM4 != ""},
		{CredentialCHV1, cfg.CHV1, !cfg.CHV1Disabled && cfg.CHV1 != ""},
		{CredentialCHV2, cfg.CHV2, cfg.CHV2 != ""},
	}

	cla := claFor(gen)
	var failures []string

	for _, s := range steps {
		if !s.enabled {
			if s.cred == CredentialCHV1 && cfg.CHV1Disabled {
				if gen == Generation3G {
					t.Comment("GPIN is disabled. No GPIN verification required.")
				} else {
					t.Comment("CHV1 is disabled. No CHV1 verification required.")
				}
			}
			continue
		}
		triple, ok := table[gen][s.cred]
		if !ok {
			failures = append(failures, fmt.Sprintf("%s: no (p1,p2,p3) configured for generation %v", s.cred, gen))
			continue
		}
		code, err := card.ParseADMKey(s.code)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", s.cred, err))
			continue
		}
		success, err := t.Verify(s.cred, gen, cla, triple, code)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", s.cred, err))
			continue
		}
		if !success {
			failures = append(failures, fmt.Sprintf("%s: SW=%04X (%s)", s.cred, t.verifyLog[len(t.verifyLog)-1].SW, card.SWToString(t.verifyLog[len(t.verifyLog)-1].SW)))
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, failures)
	}
	return nil
}
