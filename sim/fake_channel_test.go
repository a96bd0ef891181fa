package sim

import "uiccscan/card"

// fakeChannel is a scripted CardChannel used to exercise C4/C5/C6 without a
// physical reader. Each call to SendAPDU pops the next scripted response,
// in order, after recording the APDU it was given for later assertions.
type fakeChannel struct {
	responses []*card.APDUResponse
	errs      []error
	calls     [][]byte
	next      int
}

func (f *fakeChannel) SendAPDU(apdu []byte) (*card.APDUResponse, error) {
	cp := append([]byte(nil), apdu...)
	f.calls = append(f.calls, cp)
	if f.next >= len(f.responses) {
		panic("fakeChannel: ran out of scripted responses")
	}
	resp, err := f.responses[f.next], f.errs[f.next]
	f.next++
	return resp, err
}

func ok(data []byte) *card.APDUResponse {
	return &card.APDUResponse{Data: data, SW1: 0x90, SW2: 0x00}
}

func sw(sw1, sw2 byte) *card.APDUResponse {
	return &card.APDUResponse{SW1: sw1, SW2: sw2}
}

func (f *fakeChannel) push(resp *card.APDUResponse) {
	f.responses = append(f.responses, resp)
	f.errs = append(f.errs, nil)
}
