package protocol

// RconRequest is the legacy GoldSrc remote console command packet that
// doesn't carry a challenge. The payload is the raw command line,
// including the rcon password; composing it is the caller's job.
type RconRequest struct {
	Command []byte
}

func NewRconRequest(command string) *RconRequest {
	return &RconRequest{Command: []byte(command)}
}

func (p *RconRequest) Header() byte { return HeaderRconRequest }

func (p *RconRequest) MarshalPayload() ([]byte, error) {
	return p.Command, nil
}

func (p *RconRequest) UnmarshalPayload(buf *Buffer) error {
	p.Command = buf.Rest()
	return nil
}

// RconResponse carries one chunk of a remote console reply. Long
// replies arrive as several RconResponse packets whose texts the caller
// concatenates; unlike split query packets there is no compression and
// no integrity check on this path.
type RconResponse struct {
	Response []byte
}

func (p *RconResponse) Header() byte { return HeaderRconResponse }

func (p *RconResponse) MarshalPayload() ([]byte, error) {
	return p.Response, nil
}

func (p *RconResponse) UnmarshalPayload(buf *Buffer) error {
	p.Response = buf.Rest()
	return nil
}

// Text returns the raw response bytes un-interpreted. Character set
// handling is up to the caller.
func (p *RconResponse) Text() []byte {
	return p.Response
}
