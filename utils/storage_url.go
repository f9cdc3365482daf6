package utils

import "strconv"

// ExportObjectKey places generated exports under exports/<campaign>/.
func ExportObjectKey(campaignId int, name, ext string) string {
	return "exports/" + strconv.Itoa(campaignId) + "/" + GenerateUniqueFilename() + "_" + name + "." + ext
}
