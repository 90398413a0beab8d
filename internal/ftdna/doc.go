// Package ftdna scrapes Y-DNA result tables from FTDNA group project pages.
//
// The public results pages are an ASP.NET WebForms application: every page
// change is a form POST carrying the page's hidden state fields plus an
// __EVENTTARGET naming the control that "clicked". The fetcher drives that
// protocol to set the page size and walk the gridview's pages, then flattens
// the HTML table into records.
//
// Some group projects only show results to signed-in members. Sign-in itself
// requires JavaScript, so the session layer imports cookies exported from a
// signed-in browser and replays them on the scrape client.
package ftdna
