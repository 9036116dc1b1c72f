package sandbox

// SkeletonFiles returns the minimal buildable project every fresh sandbox
// is seeded with. Generated source files are overlaid on top of these, so
// the dev server has something to serve before code generation finishes.
func SkeletonFiles() []File {
	return []File{
		{
			Path: "package.json",
			Content: `{
  "name": "preview",
  "private": true,
  "version": "0.0.0",
  "type": "module",
  "scripts": {
    "dev": "vite --host",
    "build": "vite build"
  },
  "dependencies": {
    "react": "^18.3.1",
    "react-dom": "^18.3.1"
  },
  "devDependencies": {
    "@vitejs/plugin-react": "^4.3.1",
    "vite": "^5.4.1"
  }
}
`,
		},
		{
			Path: "vite.config.js",
			Content: `import { defineConfig } from 'vite'
import react from '@vitejs/plugin-react'

export default defineConfig({
  plugins: [react()],
  server: { host: true },
})
`,
		},
		{
			Path: "index.html",
			Content: `<!doctype html>
<html lang="en">
  <head>
    <meta charset="UTF-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0" />
    <title>Preview</title>
  </head>
  <body>
    <div id="root"></div>
    <script type="module" src="/src/main.jsx"></script>
  </body>
</html>
`,
		},
		{
			Path: "src/main.jsx",
			Content: `import React from 'react'
import ReactDOM from 'react-dom/client'
import App from './App.jsx'
import './index.css'

ReactDOM.createRoot(document.getElementById('root')).render(
  <React.StrictMode>
    <App />
  </React.StrictMode>,
)
`,
		},
		{
			Path: "src/App.jsx",
			Content: `export default function App() {
  return <main>Generating preview...</main>
}
`,
		},
		{
			Path: "src/index.css",
			Content: `body {
  margin: 0;
  font-family: system-ui, sans-serif;
}
`,
		},
	}
}
