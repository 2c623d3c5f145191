package pdf

var FormatCents = formatCents
