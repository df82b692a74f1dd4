package pdf

// pageTemplate 是导出用的 HTML 模板，每个 layout 渲染为一个 A4 页面。
// ATS 版式只用单栏纯文本结构，便于招聘系统解析；visual 版式带强调色与分节标题。
const pageTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        @page { size: A4; margin: 0; }
        * { -webkit-print-color-adjust: exact; print-color-adjust: exact; }
        body { margin: 0; padding: 0; background: white; }
        .a4-page {
            width: 794px;
            min-height: 1122px;
            padding: 50px;
            box-sizing: border-box;
            page-break-after: always;
        }
        .a4-page:last-child { page-break-after: auto; }

        .ats { font-family: Helvetica, Arial, sans-serif; font-size: 10pt; color: #000; }
        .ats h1 { font-size: 14pt; margin: 0 0 4px 0; }
        .ats h2 { font-size: 12pt; margin: 16px 0 6px 0; }
        .ats h3 { font-size: 11pt; margin: 8px 0 0 0; }
        .ats .dates { font-size: 9pt; }

        .visual { font-family: Helvetica, Arial, sans-serif; font-size: 11pt; color: #000; }
        .visual header { text-align: center; margin-bottom: 16px; }
        .visual h1 { font-size: 24pt; color: #2563eb; margin: 0 0 8px 0; }
        .visual .contact { color: #555; }
        .visual h2 { font-size: 16pt; color: #2563eb; margin: 18px 0 6px 0; }
        .visual .entry { margin-bottom: 8px; white-space: pre-line; }
    </style>
</head>
<body>
{{- range .Pages}}
{{- if eq . "ats"}}{{template "ats" $}}{{else}}{{template "visual" $}}{{end}}
{{- end}}
</body>
</html>

{{define "contact"}}{{.Email}} | {{.Phone}}{{if .Location}} | {{.Location}}{{end}}{{end}}

{{define "ats"}}
<section class="a4-page ats">
    <h1>{{or .Content.PersonalInfo.FullName "Name"}}</h1>
    <div>{{template "contact" .Content.PersonalInfo}}</div>
    {{- with .Content.Summary.Text}}
    <h2>Summary</h2>
    <p>{{.}}</p>
    {{- end}}
    {{- with .Content.Experience}}
    <h2>Experience</h2>
    {{- range .}}
    <h3>{{.Title}} at {{.Company}}</h3>
    <div class="dates">{{.StartDate}} - {{or .EndDate "Present"}}</div>
    {{- with .Description}}<p>{{.}}</p>{{end}}
    {{- end}}
    {{- end}}
    {{- with .Content.Education}}
    <h2>Education</h2>
    {{- range .}}
    <h3>{{.Degree}} at {{.Institution}}</h3>
    <div class="dates">{{.StartDate}} - {{or .EndDate "Present"}}</div>
    {{- with .Description}}<p>{{.}}</p>{{end}}
    {{- end}}
    {{- end}}
    {{- with .Content.Skills.Items}}
    <h2>Skills</h2>
    <p>{{join . ", "}}</p>
    {{- end}}
    {{- with .Content.Projects}}
    <h2>Projects</h2>
    {{- range .}}
    <h3>{{.Name}}</h3>
    {{- with .Link}}<div class="dates">{{.}}</div>{{end}}
    {{- with .Description}}<p>{{.}}</p>{{end}}
    {{- end}}
    {{- end}}
</section>
{{end}}

{{define "visual"}}
<section class="a4-page visual">
    <header>
        <h1>{{or .Content.PersonalInfo.FullName "Name"}}</h1>
        <div class="contact">{{template "contact" .Content.PersonalInfo}}</div>
    </header>
    {{- with .Content.Summary.Text}}
    <h2>Summary</h2>
    <div class="entry">{{.}}</div>
    {{- end}}
    {{- with .Content.Experience}}
    <h2>Experience</h2>
    {{- range .}}
    <div class="entry">{{.Title}} at {{.Company}}
{{.StartDate}} - {{or .EndDate "Present"}}
{{.Description}}</div>
    {{- end}}
    {{- end}}
    {{- with .Content.Education}}
    <h2>Education</h2>
    {{- range .}}
    <div class="entry">{{.Degree}} at {{.Institution}}
{{.StartDate}} - {{or .EndDate "Present"}}
{{.Description}}</div>
    {{- end}}
    {{- end}}
    {{- with .Content.Skills.Items}}
    <h2>Skills</h2>
    <div class="entry">{{join . ", "}}</div>
    {{- end}}
    {{- with .Content.Projects}}
    <h2>Projects</h2>
    {{- range .}}
    <div class="entry">{{.Name}}
{{.Link}}
{{.Description}}</div>
    {{- end}}
    {{- end}}
</section>
{{end}}
`
