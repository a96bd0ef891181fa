// Package scanconfig loads the scanner's two XML surfaces: the module-mode
// configuration document (§6.2) and the external file-system fallback
// listing (§6.3). Both use stdlib encoding/xml — no third-party XML library
// appears anywhere in the example pack this module was built from, so this
// is the idiomatic choice rather than a fallback of convenience.
package scanconfig

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"uiccscan/sim"
)

// customApduEntry is one <verify2g>/<verify3g> child element: one per
// credential, carrying its (p1,p2,p3) override in hex-byte attribute form.
type customApduEntry struct {
	XMLName xml.Name
	P1      string `xml:"p1,attr"`
	P2      string `xml:"p2,attr"`
	P3      string `xml:"p3,attr"`
}

// verifyBlock holds an arbitrary set of per-credential override elements
// under <verify2g> or <verify3g>; ",any" captures each child regardless of
// its element name, which customApduEntry.XMLName then records.
type verifyBlock struct {
	Entries []customApduEntry `xml:",any"`
}

// customApdu is the §6.2 customApdu subtree.
type customApdu struct {
	Verify2G verifyBlock `xml:"verify2g"`
	Verify3G verifyBlock `xml:"verify3g"`
}

// configDoc mirrors config.xml's root element per §6.2.
type configDoc struct {
	XMLName xml.Name `xml:"config"`

	ChvDisabled  bool `xml:"chv1Disabled,attr"`
	UseADM2      bool `xml:"useAdm2,attr"`
	UseADM3      bool `xml:"useAdm3,attr"`
	UseADM4      bool `xml:"useAdm4,attr"`
	USIMIn3GMode bool `xml:"usimIn3GMode,attr"`

	ReaderNumber int `xml:"readerNumber"`

	CodeADM1 string `xml:"codeAdm1"`
	CodeADM2 string `xml:"codeAdm2"`
	CodeADM3 string `xml:"codeAdm3"`
	CodeADM4 string `xml:"codeAdm4"`
	CodeCHV1 string `xml:"codeChv1"`
	CodeCHV2 string `xml:"codeChv2"`

	CustomAPDU customApdu `xml:"customApdu"`
}

// verify2gCredentials maps a <verify2g> child element name to the
// VerifyCredential it configures, per original_source/scanner.py's
// parseConfigXml (verify2gAdm1..verify2gAdm4, verify2gChv1, verify2gChv2).
var verify2gCredentials = map[string]sim.VerifyCredential{
	"verify2gadm1": sim.CredentialADM1,
	"verify2gadm2": sim.CredentialADM2,
	"verify2gadm3": sim.CredentialADM3,
	"verify2gadm4": sim.CredentialADM4,
	"verify2gchv1": sim.CredentialCHV1,
	"verify2gchv2": sim.CredentialCHV2,
}

// verify3gCredentials maps a <verify3g> child element name to the
// VerifyCredential it configures. 3G uses distinct names for the PIN forms:
// verify3gGlobalPin1 (CHV1-equivalent) and verify3gLocalPin1 (CHV2-equivalent).
var verify3gCredentials = map[string]sim.VerifyCredential{
	"verify3gadm1":       sim.CredentialADM1,
	"verify3gadm2":       sim.CredentialADM2,
	"verify3gadm3":       sim.CredentialADM3,
	"verify3gadm4":       sim.CredentialADM4,
	"verify3gglobalpin1": sim.CredentialCHV1,
	"verify3glocalpin1":  sim.CredentialCHV2,
}

// LoadConfig reads and parses config.xml at path into a sim.ScanConfig.
func LoadConfig(path string) (sim.ScanConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sim.ScanConfig{}, fmt.Errorf("scanconfig: reading %q: %w", path, err)
	}

	var doc configDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return sim.ScanConfig{}, fmt.Errorf("scanconfig: parsing %q: %w", path, err)
	}

	cfg := sim.ScanConfig{
		ReaderIndex:   doc.ReaderNumber,
		FullScript:    doc.CodeADM1 != "",
		UseADM2:       doc.UseADM2,
		UseADM3:       doc.UseADM3,
		UseADM4:       doc.UseADM4,
		CHV1Disabled:  doc.ChvDisabled,
		ADM1:          doc.CodeADM1,
		ADM2:          doc.CodeADM2,
		ADM3:          doc.CodeADM3,
		ADM4:          doc.CodeADM4,
		CHV1:          doc.CodeCHV1,
		CHV2:          doc.CodeCHV2,
		ReadContent3G: doc.USIMIn3GMode,
	}

	overrides, err := parseCustomAPDU(doc.CustomAPDU)
	if err != nil {
		return sim.ScanConfig{}, err
	}
	cfg.VerifyOverrides = overrides

	return cfg, nil
}

func parseCustomAPDU(c customApdu) (*sim.VerifyTable, error) {
	if len(c.Verify2G.Entries) == 0 && len(c.Verify3G.Entries) == 0 {
		return nil, nil
	}
	table := sim.VerifyTable{}
	if err := addEntries(table, sim.Generation2G, verify2gCredentials, c.Verify2G.Entries); err != nil {
		return nil, err
	}
	if err := addEntries(table, sim.Generation3G, verify3gCredentials, c.Verify3G.Entries); err != nil {
		return nil, err
	}
	return &table, nil
}

func addEntries(table sim.VerifyTable, gen sim.Generation, credentials map[string]sim.VerifyCredential, entries []customApduEntry) error {
	for _, e := range entries {
		cred, ok := credentials[strings.ToLower(e.XMLName.Local)]
		if !ok {
			return fmt.Errorf("scanconfig: unknown customApdu credential element %q", e.XMLName.Local)
		}
		triple, err := parseTriple(e)
		if err != nil {
			return fmt.Errorf("scanconfig: %s: %w", e.XMLName.Local, err)
		}
		if table[gen] == nil {
			table[gen] = map[sim.VerifyCredential]sim.Triple{}
		}
		table[gen][cred] = triple
	}
	return nil
}

func parseTriple(e customApduEntry) (sim.Triple, error) {
	p1, err := parseHexByte(e.P1)
	if err != nil {
		return sim.Triple{}, fmt.Errorf("p1: %w", err)
	}
	p2, err := parseHexByte(e.P2)
	if err != nil {
		return sim.Triple{}, fmt.Errorf("p2: %w", err)
	}
	p3, err := parseHexByte(e.P3)
	if err != nil {
		return sim.Triple{}, fmt.Errorf("p3: %w", err)
	}
	return sim.Triple{P1: p1, P2: p2, P3: p3}, nil
}

func parseHexByte(s string) (byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	var v uint8
	if _, err := fmt.Sscanf(s, "%02X", &v); err != nil {
		return 0, fmt.Errorf("invalid hex byte %q", s)
	}
	return v, nil
}
