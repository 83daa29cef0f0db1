package main

import "html/template"

type indexData struct {
	PixelCount int
}

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>DDP LED Grid</title>
  <style>
    :root {
      --bg: #0f1013;
      --grid-bg: #15171c;
      --cell: 20px;
      --gap: 6px;
    }
    html, body {
      height: 100%;
      margin: 0;
      background: var(--bg);
      color: #e5e7eb;
      font-family: ui-monospace, SFMono-Regular, Menlo, Consolas, monospace;
    }
    .wrap {
      display: grid;
      place-items: center;
      height: 100%;
      padding: 16px;
    }
    .grid {
      display: grid;
      grid-template-columns: repeat(10, var(--cell));
      gap: var(--gap);
      padding: 16px;
      background: var(--grid-bg);
      border-radius: 12px;
      box-shadow: 0 12px 30px rgba(0,0,0,0.45);
    }
    .cell {
      width: var(--cell);
      height: var(--cell);
      border-radius: 4px;
      background: #000;
      box-shadow: inset 0 0 0 1px rgba(255,255,255,0.08);
    }
  </style>
</head>
<body>
  <div class="wrap">
    <div class="grid" id="grid"></div>
  </div>
  <script>
    const count = {{.PixelCount}};
    const grid = document.getElementById("grid");
    for (let i = 0; i < count; i++) {
      const cell = document.createElement("div");
      cell.className = "cell";
      grid.appendChild(cell);
    }
    const cells = Array.from(grid.children);
    const events = new EventSource("/events");
    events.onmessage = (ev) => {
      const data = JSON.parse(ev.data);
      const colors = data.colors || [];
      for (let i = 0; i < cells.length; i++) {
        cells[i].style.background = colors[i] || "#000000";
      }
    };
  </script>
</body>
</html>
`))
