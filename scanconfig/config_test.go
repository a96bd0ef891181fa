package scanconfig

import (
	"os"
	"path/filepath"
	"testing"

	"uiccscan/sim"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestLoadConfig_Basic(t *testing.T) {
	xmlDoc := `<config chv1Disabled="true" useAdm2="true" useAdm3="false" useAdm4="false" usimIn3GMode="false">
  <readerNumber>0</readerNumber>
  <codeAdm1>F38A3DECF6C7D239</codeAdm1>
  <codeAdm2>1122334455667788</codeAdm2>
  <codeChv1>1234</codeChv1>
  <codeChv2>5678</codeChv2>
</config>`
	path := writeTemp(t, "config.xml", xmlDoc)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if !cfg.FullScript {
		t.Error("FullScript = false, want true (codeAdm1 present)")
	}
	if !cfg.UseADM2 || cfg.UseADM3 || cfg.UseADM4 {
		t.Errorf("UseADM2/3/4 = %v/%v/%v, want true/false/false", cfg.UseADM2, cfg.UseADM3, cfg.UseADM4)
	}
	if !cfg.CHV1Disabled {
		t.Error("CHV1Disabled = false, want true")
	}
	if cfg.ADM1 != "F38A3DECF6C7D239" {
		t.Errorf("ADM1 = %q, want F38A3DECF6C7D239", cfg.ADM1)
	}
	if cfg.CHV2 != "5678" {
		t.Errorf("CHV2 = %q, want 5678", cfg.CHV2)
	}
	if cfg.VerifyOverrides != nil {
		t.Error("VerifyOverrides: want nil when no customApdu subtree present")
	}
}

func TestLoadConfig_CustomAPDU(t *testing.T) {
	xmlDoc := `<config>
  <readerNumber>-1</readerNumber>
  <codeAdm1>0011223344556677</codeAdm1>
  <customApdu>
    <verify2g>
      <verify2gAdm1 p1="00" p2="14" p3="08"/>
    </verify2g>
    <verify3g>
      <verify3gGlobalPin1 p1="00" p2="81" p3="08"/>
    </verify3g>
  </customApdu>
</config>`
	path := writeTemp(t, "config.xml", xmlDoc)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.VerifyOverrides == nil {
		t.Fatal("VerifyOverrides: want non-nil when customApdu subtree present")
	}
	overrides := *cfg.VerifyOverrides
	got := overrides[sim.Generation2G][sim.CredentialADM1]
	want := sim.Triple{P1: 0x00, P2: 0x14, P3: 0x08}
	if got != want {
		t.Errorf("2G ADM1 override = %+v, want %+v", got, want)
	}
	got3g := overrides[sim.Generation3G][sim.CredentialCHV1]
	want3g := sim.Triple{P1: 0x00, P2: 0x81, P3: 0x08}
	if got3g != want3g {
		t.Errorf("3G CHV1 override = %+v, want %+v", got3g, want3g)
	}
}

// TestLoadConfig_CustomAPDU_FullOriginalFormat exercises the complete
// customApdu subtree against original_source/scanner.py's actual element
// names: verify3g uses GlobalPin1/LocalPin1, not Chv1/Chv2.
func TestLoadConfig_CustomAPDU_FullOriginalFormat(t *testing.T) {
	xmlDoc := `<config>
  <readerNumber>0</readerNumber>
  <codeAdm1>4331324131364442</codeAdm1>
  <customApdu>
    <verify2g>
      <verify2gAdm1 p1="00" p2="00" p3="08"/>
      <verify2gAdm2 p1="00" p2="05" p3="08"/>
      <verify2gAdm3 p1="00" p2="06" p3="08"/>
      <verify2gAdm4 p1="00" p2="07" p3="08"/>
      <verify2gChv1 p1="00" p2="01" p3="08"/>
      <verify2gChv2 p1="00" p2="02" p3="08"/>
    </verify2g>
    <verify3g>
      <verify3gAdm1 p1="00" p2="0A" p3="08"/>
      <verify3gAdm2 p1="00" p2="0B" p3="08"/>
      <verify3gAdm3 p1="00" p2="0C" p3="08"/>
      <verify3gAdm4 p1="00" p2="0D" p3="08"/>
      <verify3gGlobalPin1 p1="00" p2="01" p3="08"/>
      <verify3gLocalPin1 p1="00" p2="81" p3="08"/>
    </verify3g>
  </customApdu>
</config>`
	path := writeTemp(t, "config.xml", xmlDoc)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error on original-format customApdu: %v", err)
	}
	overrides := *cfg.VerifyOverrides

	cases := []struct {
		gen  sim.Generation
		cred sim.VerifyCredential
		want sim.Triple
	}{
		{sim.Generation2G, sim.CredentialADM2, sim.Triple{0x00, 0x05, 0x08}},
		{sim.Generation2G, sim.CredentialADM4, sim.Triple{0x00, 0x07, 0x08}},
		{sim.Generation3G, sim.CredentialADM1, sim.Triple{0x00, 0x0A, 0x08}},
		{sim.Generation3G, sim.CredentialCHV1, sim.Triple{0x00, 0x01, 0x08}}, // verify3gGlobalPin1
		{sim.Generation3G, sim.CredentialCHV2, sim.Triple{0x00, 0x81, 0x08}}, // verify3gLocalPin1
	}
	for _, tc := range cases {
		if got := overrides[tc.gen][tc.cred]; got != tc.want {
			t.Errorf("gen=%v cred=%v override = %+v, want %+v", tc.gen, tc.cred, got, tc.want)
		}
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.xml")); err == nil {
		t.Error("LoadConfig on missing file: want error, got nil")
	}
}

func TestLoadFileSystemXML(t *testing.T) {
	// S7: {3F00, 3F00/7F20, 3F00/7F20/6F07}
	xmlDoc := `<ArrayOfDBFile>
  <DBFile><NAME>MF</NAME><FILEID>3F00</FILEID><PATH></PATH></DBFile>
  <DBFile><NAME>DF_GSM</NAME><FILEID>7F20</FILEID><PATH>3F00|</PATH></DBFile>
  <DBFile><NAME>EF_IMSI</NAME><FILEID>6F07</FILEID><PATH>3F00|7F20|</PATH></DBFile>
</ArrayOfDBFile>`
	path := writeTemp(t, "filesystem.xml", xmlDoc)

	paths, err := LoadFileSystemXML(path)
	if err != nil {
		t.Fatalf("LoadFileSystemXML error: %v", err)
	}
	want := []string{"3F00", "3F007F20", "3F007F206F07"}
	if len(paths) != len(want) {
		t.Fatalf("got %d paths, want %d: %v", len(paths), len(want), paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("path %d = %q, want %q", i, paths[i], want[i])
		}
	}
}
