package subproc

import (
	"fmt"
	"io"
	"os"
)

// pumpChunkSize is the transfer granularity of the stream pumps.
const pumpChunkSize = 2048

// startSourcePump moves bytes from src into the child's stdin pipe on its
// own goroutine, then closes the pipe end so the child observes
// end-of-input. Pipe write failures are expected once the child exits; they
// stop the pump and are logged rather than surfaced, since there is nobody
// left to read the rest.
func (p *Process) startSourcePump(src io.Reader, dst *os.File) {
	log := p.log.Named("stdin_pump")
	p.pumps.Go(func() error {
		defer dst.Close()
		buf := make([]byte, pumpChunkSize)
		for {
			n, rerr := src.Read(buf)
			if n > 0 {
				if _, werr := dst.Write(buf[:n]); werr != nil {
					log.Debugf("child stopped reading stdin: %s", werr)
					return nil
				}
			}
			if rerr != nil {
				if rerr != io.EOF {
					log.Debugf("stdin source ended early: %s", rerr)
				}
				return nil
			}
		}
	})
}

// startSinkPump drains one captured output stream into sink until
// end-of-stream. The pipe end is not closed here; the owning Process closes
// it after joining the pump. A failing sink is a real error and is surfaced
// through the join.
func (p *Process) startSinkPump(src *os.File, sink io.Writer, name string) {
	log := p.log.Named(name + "_pump")
	p.pumps.Go(func() error {
		buf := make([]byte, pumpChunkSize)
		for {
			n, rerr := src.Read(buf)
			if n > 0 {
				if _, werr := sink.Write(buf[:n]); werr != nil {
					return fmt.Errorf("writing %s sink: %w", name, werr)
				}
			}
			if rerr != nil {
				if rerr != io.EOF {
					log.Debugf("%s pipe read ended: %s", name, rerr)
				}
				return nil
			}
		}
	})
}
