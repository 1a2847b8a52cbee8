package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// indexHTML is the remote control page: it shows the pushed total and sends
// typed phrases back over the same socket.
const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Elapsed timer</title>
<style>
body { font-family: sans-serif; margin: 2em; }
#time { font-size: 2.5em; margin-bottom: 1em; }
</style>
</head>
<body>
<div id="time">--</div>
<form id="set">
  <input id="phrase" size="40" placeholder="1 hours 20 minutes 5 seconds">
  <button type="submit">Set</button>
  <button type="button" id="reset">Reset</button>
</form>
<script>
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
const pad = n => String(n).padStart(2, "0");
ws.onmessage = ev => {
  let t = parseInt(ev.data, 10);
  if (isNaN(t)) return;
  const d = Math.floor(t / 86400); t %= 86400;
  const h = Math.floor(t / 3600); t %= 3600;
  const m = Math.floor(t / 60);
  document.getElementById("time").textContent = d + "d " + pad(h) + ":" + pad(m) + ":" + pad(t % 60);
};
document.getElementById("set").onsubmit = ev => {
  ev.preventDefault();
  ws.send(document.getElementById("phrase").value);
};
document.getElementById("reset").onclick = () => ws.send("Reset");
</script>
</body>
</html>
`

// @Summary      Remote control page
// @Tags         system
// @Produce      html
// @Success      200  {string}  string
// @Router       / [get]
func (h *Handler) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexHTML))
}
