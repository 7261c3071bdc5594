package transition

// DefaultPhrases are the English wordings interviewers use to close a section.
var DefaultPhrases = []string{
	"let's move on to the next section",
	"lets move on to the next section",
	"let's move to the next section",
	"lets move to the next section",
	"let's proceed to the next section",
	"lets proceed to the next section",
	"let's continue to the next section",
	"lets continue to the next section",
	"moving on to the next section",
	"move on to the next section",
	"let's move on",
	"lets move on",
	"shall we move on",
	"shall we continue",
	"shall we proceed",
	"ready to move on",
	"are you ready for the next section",
	"let's transition to the next",
	"lets transition to the next",
	"that concludes this section",
	"that wraps up this section",
}
