package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"gridabm/internal/stream"
	"gridabm/pkg/core"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a model live and stream frames over websocket",
		Long: `Run one model paced at --tps steps per second and broadcast a JSON
frame after every step on /ws. The page at / renders the grid.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRunConfig(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.Serve.Addr, _ = flags.GetString("addr")
			}
			if flags.Changed("tps") {
				cfg.Serve.TPS, _ = flags.GetInt("tps")
			}
			if flags.Changed("idle") {
				cfg.Serve.Idle, _ = flags.GetDuration("idle")
			}
			log := newLogger(cfg)

			m, err := core.Build(cfg.Model, cfg.ModelParams(), core.Options{Logger: log})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			hub := stream.NewHub(log)
			defer hub.Close()
			mux := http.NewServeMux()
			mux.Handle("/ws", hub)
			mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				fmt.Fprint(w, indexPage)
			})

			ln, err := net.Listen("tcp", cfg.Serve.Addr)
			if err != nil {
				return err
			}
			srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server", "err", err)
				}
			}()
			log.Info("serving", "addr", ln.Addr().String(), "model", m.Name(), "tps", cfg.Serve.TPS)
			fmt.Fprintf(cmd.OutOrStdout(), "streaming %s on http://%s/\n", m.Name(), ln.Addr())

			runErr := stream.Drive(ctx, m, hub, cfg.Serve.TPS)
			if runErr == nil {
				log.Info("run finished", "steps", m.Sim().Steps(), "reason", m.Sim().Reason())
				idle := cfg.Serve.Idle
				if idle <= 0 {
					<-ctx.Done()
				} else {
					select {
					case <-ctx.Done():
					case <-time.After(idle):
					}
				}
			}

			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdown); err != nil {
				return err
			}
			if errors.Is(runErr, context.Canceled) {
				return nil
			}
			return runErr
		},
	}
	addRunFlags(cmd)
	cmd.Flags().String("addr", "", "Listen address (default from run file, :8080)")
	cmd.Flags().Int("tps", 0, "Steps per second")
	cmd.Flags().Duration("idle", 0, "Keep serving this long after the run ends (0 = until interrupted)")
	return cmd
}

const indexPage = `<!doctype html>
<html>
<head><title>abm</title>
<style>body{font:14px monospace;background:#111;color:#ddd}canvas{image-rendering:pixelated;border:1px solid #444}</style>
</head>
<body>
<div id="status">connecting</div>
<canvas id="grid"></canvas>
<pre id="metrics"></pre>
<script>
const palette = [[17,17,17],[80,160,90],[220,200,80],[200,80,80],[90,140,220],[200,120,220],[240,240,240]];
const canvas = document.getElementById("grid"), ctx = canvas.getContext("2d");
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.onmessage = (ev) => {
  const f = JSON.parse(ev.data);
  const cells = Uint8Array.from(atob(f.cells || ""), c => c.charCodeAt(0));
  canvas.width = f.width; canvas.height = f.height;
  canvas.style.width = (f.width * 8) + "px"; canvas.style.height = (f.height * 8) + "px";
  const img = ctx.createImageData(f.width, f.height);
  cells.forEach((v, i) => {
    const c = palette[Math.min(v, palette.length - 1)];
    img.data.set([c[0], c[1], c[2], 255], i * 4);
  });
  ctx.putImageData(img, 0, 0);
  document.getElementById("status").textContent = f.model + " step " + f.step + " " + f.state + (f.reason ? " (" + f.reason + ")" : "");
  document.getElementById("metrics").textContent = (f.columns || []).map((c, i) => c.padEnd(14) + f.values[i]).join("\n");
};
ws.onclose = () => { document.getElementById("status").textContent += " [disconnected]"; };
</script>
</body>
</html>
`
