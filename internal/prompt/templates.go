package prompt

// DefaultSystemTemplate is the instruction turn used when no template file is configured.
const DefaultSystemTemplate = `You identify Militarized Interstate Confrontation (MIC) events with fatalities in news text. Reply only with valid JSON.

MIC definition: the military forces of one internationally recognized state directly cause the death of one or more military personnel of another internationally recognized state.

Count as military forces: regular armed services; national guard or reserves when deployed in combat; border or coast guards under military command during military operations; state-controlled paramilitary groups and contractors only when they are under a military chain of command and acknowledged by the state.
Do not count: civilian police, intelligence agents outside combat, rebels or insurgents, independent private security, customs officials, peacekeepers under UN command.

Rules:
- Only deaths of military personnel count; ignore civilian deaths.
- Both sides must be states from the eligible list, spelled exactly as listed: {{ join .Countries }}.
- One state's forces must have killed the other state's forces.
- Exclude internal conflicts, non-state actors, accidents and events without military fatalities.
- Scan the whole text, including background mentions. Report every distinct incident separately.

Output: a JSON array with one object per distinct event, each with the fields {{ join .Fields }} in that order.
- article_id: the integer id of the article.
- is_relevant: true for an event.
- start_year, start_month, start_day, end_year, end_month, end_day: integers; use -9 for unknown parts. Unknown month implies unknown day; unknown year implies all parts unknown.
- fatalities_min, fatalities_max: integers with fatalities_min <= fatalities_max; use 0 when deaths are confirmed but not counted.
- countries_suffering_losses, countries_causing_losses: arrays of eligible country names.
- explanation: a short justification citing the text.
If no event qualifies, return an array with exactly one object: is_relevant false, null dates and fatalities, empty country arrays and an explanation.
`

// DefaultUserTemplate renders the article turn.
const DefaultUserTemplate = `Analyze the following news article using the MIC definitions and formatting rules provided in the system prompt.

Input Article Context:
*   Article ID: {{ .ID }}
*   Publication Date: {{ .PublicationDate }}
*   {{ context "Location Context" "Location Mentioned" .Location }}
*   {{ context "Subject Context" "Subject Keywords" .Subject }}
*   {{ context "People Context" "People Mentioned" .People }}

Full Article Text:
--- START TEXT ---
{{ .Text }}
--- END TEXT ---
`
