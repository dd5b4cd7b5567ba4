package web

// dashboardPage is the built-in single-file dashboard. It talks to the
// same listener over /ws and the /api endpoints.
const dashboardPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>hyprpilot</title>
<style>
  :root { color-scheme: dark; }
  body { font-family: monospace; background: #1e1e2e; color: #cdd6f4; margin: 0; padding: 2rem; }
  h1 { color: #89b4fa; margin-top: 0; }
  #log { background: #181825; border: 1px solid #313244; border-radius: 6px;
         padding: 1rem; height: 50vh; overflow-y: auto; white-space: pre-wrap; }
  .user { color: #a6e3a1; }
  .status { color: #6c7086; }
  .error { color: #f38ba8; }
  form { display: flex; gap: .5rem; margin-top: 1rem; }
  input[type=text] { flex: 1; background: #181825; color: inherit;
         border: 1px solid #313244; border-radius: 6px; padding: .6rem; }
  button { background: #89b4fa; color: #1e1e2e; border: 0; border-radius: 6px;
         padding: .6rem 1.2rem; cursor: pointer; }
  label { color: #6c7086; align-self: center; }
</style>
</head>
<body>
<h1>hyprpilot</h1>
<div id="log"></div>
<form id="form">
  <input id="query" type="text" placeholder="tell the desktop what to do..." autocomplete="off">
  <label><input id="shot" type="checkbox"> screen</label>
  <button type="submit">send</button>
</form>
<script>
const log = document.getElementById("log");
function append(cls, text) {
  const line = document.createElement("div");
  line.className = cls;
  line.textContent = text;
  log.appendChild(line);
  log.scrollTop = log.scrollHeight;
}
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onopen = () => append("status", "connected");
ws.onclose = () => append("error", "disconnected");
ws.onmessage = (e) => {
  const msg = JSON.parse(e.data);
  switch (msg.type) {
    case "connected": append("status", "session " + msg.client_id); break;
    case "processing": append("status", msg.message); break;
    case "result": {
      const r = msg.result;
      append(r.success ? "" : "error", r.response);
      break;
    }
    case "event": break;
    default: break;
  }
};
document.getElementById("form").addEventListener("submit", (e) => {
  e.preventDefault();
  const input = document.getElementById("query");
  const q = input.value.trim();
  if (!q) return;
  append("user", "> " + q);
  ws.send(JSON.stringify({type: "query", query: q,
    screenshot: document.getElementById("shot").checked}));
  input.value = "";
});
</script>
</body>
</html>
`
