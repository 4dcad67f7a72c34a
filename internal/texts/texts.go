// ABOUTME: User-facing text catalog loaded from embedded YAML
// ABOUTME: Operators may override any entry with their own YAML file

package texts

import (
	_ "embed"
	"fmt"
	"os"
	"reflect"

	"gopkg.in/yaml.v3"
)

//go:embed texts.yaml
var defaultYAML []byte

// Catalog holds every message and button label the bot shows. Entries with
// format verbs are used with fmt.Sprintf.
type Catalog struct {
	SkipKeyword                       string `yaml:"skip_keyword"`
	ClearKeyword                      string `yaml:"clear_keyword"`
	ButtonConsent                     string `yaml:"button_consent"`
	ButtonYes                         string `yaml:"button_yes"`
	ButtonNo                          string `yaml:"button_no"`
	ButtonSkip                        string `yaml:"button_skip"`
	ButtonApply                       string `yaml:"button_apply"`
	ButtonAnnouncementApply           string `yaml:"button_announcement_apply"`
	ButtonTargetAll                   string `yaml:"button_target_all"`
	ButtonTargetAnnouncement          string `yaml:"button_target_announcement"`
	ButtonTargetEvent                 string `yaml:"button_target_event"`
	ButtonTargetCancel                string `yaml:"button_target_cancel"`
	ButtonExportMembers               string `yaml:"button_export_members"`
	ButtonExportApplications          string `yaml:"button_export_applications"`
	ButtonShowEvents                  string `yaml:"button_show_events"`
	ButtonEventExport                 string `yaml:"button_event_export"`
	ButtonEventDelete                 string `yaml:"button_event_delete"`
	ButtonEventEdit                   string `yaml:"button_event_edit"`
	ButtonEventBroadcast              string `yaml:"button_event_broadcast"`
	ButtonEventResend                 string `yaml:"button_event_resend"`
	ButtonDeleteConfirm               string `yaml:"button_delete_confirm"`
	ButtonDeleteCancel                string `yaml:"button_delete_cancel"`
	Welcome                           string `yaml:"welcome"`
	ConsentPrompt                     string `yaml:"consent_prompt"`
	PhonePrompt                       string `yaml:"phone_prompt"`
	PhoneInvalid                      string `yaml:"phone_invalid"`
	PhoneTaken                        string `yaml:"phone_taken"`
	NamePrompt                        string `yaml:"name_prompt"`
	NameEmpty                         string `yaml:"name_empty"`
	NameInvalid                       string `yaml:"name_invalid"`
	TextRequired                      string `yaml:"text_required"`
	Registered                        string `yaml:"registered"`
	EventsOffer                       string `yaml:"events_offer"`
	AlreadyRegistered                 string `yaml:"already_registered"`
	NavigationHint                    string `yaml:"navigation_hint"`
	RegisterFirst                     string `yaml:"register_first"`
	NoEvents                          string `yaml:"no_events"`
	ChooseEvent                       string `yaml:"choose_event"`
	EventNotFound                     string `yaml:"event_not_found"`
	EventCard                         string `yaml:"event_card"`
	Applied                           string `yaml:"applied"`
	AlreadyAppliedEvent               string `yaml:"already_applied_event"`
	AlreadyAppliedAnnouncement        string `yaml:"already_applied_announcement"`
	AnnouncementNotReady              string `yaml:"announcement_not_ready"`
	AnnouncementCard                  string `yaml:"announcement_card"`
	AdminEventApplication             string `yaml:"admin_event_application"`
	AdminAnnouncementApplication      string `yaml:"admin_announcement_application"`
	AdminDenied                       string `yaml:"admin_denied"`
	AdminPanel                        string `yaml:"admin_panel"`
	EventTitlePrompt                  string `yaml:"event_title_prompt"`
	EventDescriptionPrompt            string `yaml:"event_description_prompt"`
	EventPhotoPrompt                  string `yaml:"event_photo_prompt"`
	PhotoOrSkip                       string `yaml:"photo_or_skip"`
	EventCreated                      string `yaml:"event_created"`
	AnnouncementTitlePrompt           string `yaml:"announcement_title_prompt"`
	AnnouncementDescriptionPrompt     string `yaml:"announcement_description_prompt"`
	AnnouncementPhotoPrompt           string `yaml:"announcement_photo_prompt"`
	AnnouncementEditTitlePrompt       string `yaml:"announcement_edit_title_prompt"`
	AnnouncementEditDescriptionPrompt string `yaml:"announcement_edit_description_prompt"`
	AnnouncementEditPhotoPrompt       string `yaml:"announcement_edit_photo_prompt"`
	AnnouncementSaved                 string `yaml:"announcement_saved"`
	BroadcastTextPrompt               string `yaml:"broadcast_text_prompt"`
	BroadcastPhotoPrompt              string `yaml:"broadcast_photo_prompt"`
	EventBroadcastTextPrompt          string `yaml:"event_broadcast_text_prompt"`
	TargetPrompt                      string `yaml:"target_prompt"`
	BroadcastCard                     string `yaml:"broadcast_card"`
	AnnouncementBroadcastCard         string `yaml:"announcement_broadcast_card"`
	EventBroadcastCard                string `yaml:"event_broadcast_card"`
	ResendCard                        string `yaml:"resend_card"`
	BroadcastReport                   string `yaml:"broadcast_report"`
	BroadcastCancelled                string `yaml:"broadcast_cancelled"`
	NoRecipients                      string `yaml:"no_recipients"`
	Stats                             string `yaml:"stats"`
	AdminNoEvents                     string `yaml:"admin_no_events"`
	AdminChooseEvent                  string `yaml:"admin_choose_event"`
	AdminEventMenu                    string `yaml:"admin_event_menu"`
	ExportMembersCaption              string `yaml:"export_members_caption"`
	ExportApplicationsCaption         string `yaml:"export_applications_caption"`
	ExportEventCaption                string `yaml:"export_event_caption"`
	ExportEmpty                       string `yaml:"export_empty"`
	ExportFailed                      string `yaml:"export_failed"`
	DeletePrompt                      string `yaml:"delete_prompt"`
	EventDeleted                      string `yaml:"event_deleted"`
	EventDeleteMissing                string `yaml:"event_delete_missing"`
	DeleteCancelled                   string `yaml:"delete_cancelled"`
	EventEditTitlePrompt              string `yaml:"event_edit_title_prompt"`
	EventEditDescriptionPrompt        string `yaml:"event_edit_description_prompt"`
	EventEditPhotoPrompt              string `yaml:"event_edit_photo_prompt"`
	EventUpdated                      string `yaml:"event_updated"`
	FieldRequired                     string `yaml:"field_required"`
	NotActive                         string `yaml:"not_active"`
	UnknownCommand                    string `yaml:"unknown_command"`
	Cancelled                         string `yaml:"cancelled"`
	StorageFailure                    string `yaml:"storage_failure"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	var c Catalog
	if err := yaml.Unmarshal(defaultYAML, &c); err != nil {
		panic(fmt.Sprintf("embedded texts.yaml is invalid: %v", err))
	}
	return &c
}

// Load returns the built-in catalog with entries from path layered on top.
// An empty path returns the defaults.
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading texts file: %w", err)
	}

	// Decoding into the defaults leaves keys absent from the file untouched.
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing texts file: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate reports the first entry that is empty.
func (c *Catalog) Validate() error {
	v := reflect.ValueOf(c).Elem()
	t := v.Type()
	for i := range t.NumField() {
		if v.Field(i).String() == "" {
			return fmt.Errorf("text %q is empty", t.Field(i).Tag.Get("yaml"))
		}
	}
	return nil
}
